package enclaveserver

import (
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tkhq/verifiable-apps/internal/ersapi"
	"github.com/tkhq/verifiable-apps/internal/obs"
	"github.com/tkhq/verifiable-apps/internal/proxyproto"
)

func dialUnix(sockPath string) (net.Conn, error) {
	return net.Dial("unix", sockPath)
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	logger := obs.NewLogger(obs.LoggerConfig{Format: obs.TextLogFormat, Output: io.Discard, Level: slog.LevelInfo})
	processor := NewProcessor(sampleBundle(), logger)

	sockPath := filepath.Join(t.TempDir(), "ers.sock")
	srv, err := NewServer("unix", sockPath, processor, logger)
	require.NoError(t, err)

	go func() { _ = srv.Serve() }()

	return srv, sockPath
}

func TestListener_ProxyRequestRoundTrip(t *testing.T) {
	srv, sockPath := newTestServer(t)
	defer srv.Close()

	conn, err := dialWithRetry(t, sockPath)
	require.NoError(t, err)
	defer conn.Close()

	req, err := ersapi.EncodeRetrieveBundle()
	require.NoError(t, err)
	require.NoError(t, proxyproto.WriteFrame(conn, proxyproto.KindProxyRequest, &proxyproto.ProxyRequest{Data: req}))

	kind, body, err := proxyproto.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, proxyproto.KindProxyResponse, kind)

	var resp proxyproto.ProxyResponse
	require.NoError(t, proxyproto.DecodeBody(body, &resp))

	msg, err := ersapi.Decode(resp.Data)
	require.NoError(t, err)
	require.Equal(t, ersapi.VariantBundle, msg.Variant)
}

func TestListener_LiveAttestationDocRequest(t *testing.T) {
	srv, sockPath := newTestServer(t)
	defer srv.Close()

	conn, err := dialWithRetry(t, sockPath)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, proxyproto.WriteFrame(conn, proxyproto.KindLiveAttestationDocRequest, &proxyproto.LiveAttestationDocRequest{}))

	kind, body, err := proxyproto.ReadFrame(conn)
	require.NoError(t, err)
	require.Equal(t, proxyproto.KindLiveAttestationDocResponse, kind)

	var resp proxyproto.LiveAttestationDocResponse
	require.NoError(t, proxyproto.DecodeBody(body, &resp))
	require.Equal(t, sampleBundle().AttestationDoc, resp.NSMResponse)
}

// dialWithRetry handles the small startup race between launching Serve in
// a goroutine and the listener actually accepting connections.
func dialWithRetry(t *testing.T, sockPath string) (c net.Conn, err error) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		conn, dialErr := dialUnix(sockPath)
		if dialErr == nil {
			return conn, nil
		}
		err = dialErr
		time.Sleep(10 * time.Millisecond)
	}
	return nil, err
}
