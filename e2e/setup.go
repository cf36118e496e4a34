// Package e2e spins up the full reshard stack, an enclave service on a
// unix socket behind a host gateway on a loopback TCP port, and drives it
// with a real gRPC client.
package e2e

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tkhq/verifiable-apps/e2e/enclavesim"
	"github.com/tkhq/verifiable-apps/internal/attestation"
	"github.com/tkhq/verifiable-apps/internal/ceremony"
	"github.com/tkhq/verifiable-apps/internal/enclaveserver"
	"github.com/tkhq/verifiable-apps/internal/hostgateway"
	"github.com/tkhq/verifiable-apps/internal/obs"
)

const (
	host    = "127.0.0.1"
	svcName = "reshard_host"

	// Default ceremony shape for the happy-path suite.
	threshold = 3
	nMembers  = 5

	socketClientTimeout = 5 * time.Second

	retrieveReshardMethod = "/reshard.v1.HostGateway/RetrieveReshard"
)

// MemberKey pairs a share-set alias with the recipient's private key, the
// piece a real custodian would hold offline.
type MemberKey struct {
	Alias   string
	Private *ecdsa.PrivateKey
}

type TestSuite struct {
	Ctx       context.Context
	Log       log.Logger
	Threshold int
	Members   []MemberKey

	// Conn is a live gRPC client connection to the host gateway.
	Conn *grpc.ClientConn

	// EnclaveAddr is the enclave-side socket path, for tests that talk to
	// the enclave service directly rather than through the gateway.
	EnclaveAddr string
}

// RetrieveReshard invokes the gateway's RPC and returns the bundle JSON.
func (ts *TestSuite) RetrieveReshard(ctx context.Context) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := ts.Conn.Invoke(ctx, retrieveReshardMethod, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.Value, nil
}

// CreateTestSuite runs a full ceremony with fresh keys, boots the real
// enclave server on a unix socket and the host gateway in front of it,
// and returns a suite plus a kill func that tears both down.
func CreateTestSuite(t *testing.T) (TestSuite, func()) {
	logger := testLogger()
	members, bundle := runTestCeremony(t)

	sock := filepath.Join(t.TempDir(), "enclave.sock")
	processor := enclaveserver.NewProcessor(bundle, logger)
	ers, err := enclaveserver.NewServer("unix", sock, processor, logger)
	require.NoError(t, err)
	go func() {
		if serveErr := ers.Serve(); serveErr != nil {
			t.Errorf("enclave server exited: %v", serveErr)
		}
	}()

	conn, client, stopGateway := startGateway(t, logger, "unix", sock)

	kill := func() {
		stopGateway()
		_ = client.Close()
		_ = ers.Close()
	}

	return TestSuite{
		Ctx:         context.Background(),
		Log:         logger,
		Threshold:   threshold,
		Members:     members,
		Conn:        conn,
		EnclaveAddr: sock,
	}, kill
}

// CreateSimTestSuite is CreateTestSuite with the enclave replaced by an
// enclavesim.Simulator wrapping the same processor, for fault-injection
// tests that need to stall the enclave.
func CreateSimTestSuite(t *testing.T) (TestSuite, *enclavesim.Simulator, func()) {
	logger := testLogger()
	members, bundle := runTestCeremony(t)

	sock := filepath.Join(t.TempDir(), "enclave.sock")
	processor := enclaveserver.NewProcessor(bundle, logger)
	sim, err := enclavesim.New("unix", sock, processor.Process)
	require.NoError(t, err)

	conn, client, stopGateway := startGateway(t, logger, "unix", sock)

	kill := func() {
		stopGateway()
		_ = client.Close()
		_ = sim.Close()
	}

	return TestSuite{
		Ctx:         context.Background(),
		Log:         logger,
		Threshold:   threshold,
		Members:     members,
		Conn:        conn,
		EnclaveAddr: sock,
	}, sim, kill
}

func testLogger() log.Logger {
	return obs.NewLogger(obs.LoggerConfig{
		Format: obs.TextLogFormat,
		Output: io.Discard,
		Level:  slog.LevelInfo,
	}).New("role", svcName)
}

// runTestCeremony generates a fresh quorum key, ephemeral key, and member
// keypairs, then performs the reshard precompute with the mock attestation
// provider, exactly as the enclave binary does at boot.
func runTestCeremony(t *testing.T) ([]MemberKey, *ceremony.ReshardBundle) {
	quorumPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ephemeralPriv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	members := make([]MemberKey, nMembers)
	shareSet := ceremony.ShareSet{Threshold: threshold, Members: make([]ceremony.Member, nMembers)}
	for i := range members {
		priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		require.NoError(t, err)
		alias := fmt.Sprintf("reshard-%d", i+1)
		members[i] = MemberKey{Alias: alias, Private: priv}
		shareSet.Members[i] = ceremony.Member{Alias: alias, PubKey: &priv.PublicKey}
	}

	manifest := ceremony.ManifestEnvelope{
		Manifest:          []byte("e2e-manifest"),
		ManifestApprovals: []byte("e2e-manifest-approvals"),
		ShareSetApprovals: []byte("e2e-share-set-approvals"),
	}

	bundle, err := ceremony.RunCeremony(
		&ceremony.QuorumKey{Private: quorumPriv},
		&ceremony.EphemeralKey{Private: ephemeralPriv},
		manifest,
		shareSet,
		attestation.NewMockProvider(),
	)
	require.NoError(t, err)

	return members, bundle
}

// startGateway boots a host gateway on an ephemeral loopback port wired to
// the given enclave socket, and dials it with a gRPC client.
func startGateway(t *testing.T, logger log.Logger, enclaveNetwork, enclaveAddr string) (*grpc.ClientConn, *hostgateway.EnclaveClient, func()) {
	queue := hostgateway.NewQueue()
	m := obs.NewMetrics()
	client := hostgateway.NewEnclaveClient(enclaveNetwork, enclaveAddr, socketClientTimeout)

	srv, err := hostgateway.NewServer("tcp", host+":0", queue, client, logger, m)
	require.NoError(t, err)
	consumer := hostgateway.NewConsumer(queue, client, logger, m)

	shutdownCh := make(chan struct{})
	serveDone := make(chan struct{})
	go func() {
		defer close(serveDone)
		if serveErr := srv.Serve(context.Background(), consumer, shutdownCh); serveErr != nil {
			t.Errorf("host gateway exited: %v", serveErr)
		}
	}()

	conn, err := grpc.NewClient(srv.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	stop := func() {
		_ = conn.Close()
		close(shutdownCh)
		<-serveDone
	}
	return conn, client, stop
}
