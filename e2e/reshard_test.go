package e2e_test

import (
	"context"
	"crypto/ecdsa"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/tkhq/verifiable-apps/e2e"
	"github.com/tkhq/verifiable-apps/internal/bundlejson"
	"github.com/tkhq/verifiable-apps/internal/ersapi"
	"github.com/tkhq/verifiable-apps/internal/proxyproto"
	"github.com/tkhq/verifiable-apps/internal/verify"
)

// TestRetrieveReshard_EndToEnd drives the full path: gRPC RetrieveReshard
// through the gateway queue, over the enclave socket, back as the external
// JSON contract, then runs the complete offline verification against it
// with the custodians' private keys.
func TestRetrieveReshard_EndToEnd(t *testing.T) {
	t.Parallel()

	ts, kill := e2e.CreateTestSuite(t)
	defer kill()

	ctx, cancel := context.WithTimeout(ts.Ctx, 30*time.Second)
	defer cancel()

	raw, err := ts.RetrieveReshard(ctx)
	require.NoError(t, err)

	// External contract spot checks before any typed parsing.
	require.Contains(t, raw, `"quorumPublicKey"`)
	require.Contains(t, raw, `"memberOutputs"`)
	require.NotContains(t, raw, "0x")

	bundle, err := bundlejson.Unmarshal(raw)
	require.NoError(t, err)
	require.Len(t, bundle.MemberOutputs, 5)

	privByAlias := make(map[string]*ecdsa.PrivateKey, len(ts.Members))
	for _, m := range ts.Members {
		privByAlias[m.Alias] = m.Private
	}

	recovered, err := verify.RecoverShares(bundle, privByAlias)
	require.NoError(t, err)
	require.Len(t, recovered, 5)
	// A share is the 32-byte seed plus the sharing scheme's one-byte
	// x-coordinate tag.
	for _, r := range recovered {
		require.Len(t, r.Share, 33, "member %s", r.MemberAlias)
	}

	atK, belowK, err := verify.VerifyReconstruction(bundle, recovered, ts.Threshold)
	require.NoError(t, err)
	require.Len(t, atK, 10)
	require.Len(t, belowK, 15)
	for _, res := range atK {
		require.True(t, res.Match, "subset %v must reconstruct the quorum key", res.Members)
	}
	for _, res := range belowK {
		require.False(t, res.Match, "subset %v must not reconstruct the quorum key", res.Members)
	}

	sigOK, err := verify.VerifySignature(bundle)
	require.NoError(t, err)
	require.True(t, sigOK)

	randomRejected, err := verify.VerifyRandomKeyRejected(bundle)
	require.NoError(t, err)
	require.True(t, randomRejected)
}

// TestEnclaveSocket_MalformedPayloadThenHealth talks to the enclave
// service directly: arbitrary garbage inside a well-formed proxy frame
// must come back as the opaque Error variant, and the same connection
// must still answer a Health request afterwards.
func TestEnclaveSocket_MalformedPayloadThenHealth(t *testing.T) {
	t.Parallel()

	ts, kill := e2e.CreateTestSuite(t)
	defer kill()

	conn, err := net.Dial("unix", ts.EnclaveAddr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(10*time.Second)))

	err = proxyproto.WriteFrame(conn, proxyproto.KindProxyRequest, &proxyproto.ProxyRequest{Data: []byte{0xDE, 0xAD, 0xBE, 0xEF}})
	require.NoError(t, err)

	kind, body, err := proxyproto.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, proxyproto.KindProxyResponse, kind)
	var resp proxyproto.ProxyResponse
	require.NoError(t, proxyproto.DecodeBody(body, &resp))
	msg, err := ersapi.Decode(resp.Data)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantError, msg.Variant)

	payload, err := ersapi.EncodeHealthRequest()
	require.NoError(t, err)
	err = proxyproto.WriteFrame(conn, proxyproto.KindProxyRequest, &proxyproto.ProxyRequest{Data: payload})
	require.NoError(t, err)

	kind, body, err = proxyproto.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, proxyproto.KindProxyResponse, kind)
	require.NoError(t, proxyproto.DecodeBody(body, &resp))
	msg, err = ersapi.Decode(resp.Data)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantHealth, msg.Variant)
}

// TestHealth_LivenessAndReadiness checks the gateway's health surface over
// real gRPC: liveness serves as soon as the server is bound, readiness
// stays NOT_SERVING until a probe succeeds, and Watch emits a first status
// immediately.
func TestHealth_LivenessAndReadiness(t *testing.T) {
	t.Parallel()

	ts, kill := e2e.CreateTestSuite(t)
	defer kill()

	ctx, cancel := context.WithTimeout(ts.Ctx, 10*time.Second)
	defer cancel()

	hc := grpc_health_v1.NewHealthClient(ts.Conn)

	resp, err := hc.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "liveness"})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)

	resp, err = hc.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "readiness"})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)

	_, err = hc.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "no-such-service"})
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st.Code())

	watchCtx, watchCancel := context.WithCancel(ctx)
	defer watchCancel()
	stream, err := hc.Watch(watchCtx, &grpc_health_v1.HealthCheckRequest{Service: "liveness"})
	require.NoError(t, err)
	first, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, first.Status)
}
