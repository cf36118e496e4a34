package hostgateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tkhq/verifiable-apps/internal/obs"
)

func TestHTTPAppHealthFunc_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	probe := HTTPAppHealthFunc(srv.Client(), srv.URL)
	code, err := probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, code)
}

func TestHTTPAppHealthFunc_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	probe := HTTPAppHealthFunc(srv.Client(), srv.URL)
	code, err := probe(context.Background())
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, code)
}

// Readiness must track the last app probe result. The test avoids
// waiting a full probeInterval: ProbeLoop runs once immediately on
// entry.
func TestProbeLoop_TransitionsReadinessOnAppStatus(t *testing.T) {
	health := NewHealthServer()
	m := obs.NewMetrics()
	logger := obs.NewLogger(obs.LoggerConfig{Format: obs.TextLogFormat, Output: io.Discard, Level: slog.LevelInfo})

	probe := func(ctx context.Context) (int, error) { return http.StatusOK, nil }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ProbeLoop(ctx, probe, health, m, logger)

	require.Eventually(t, func() bool {
		resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceReadiness})
		return err == nil && resp.Status == grpc_health_v1.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)
}

func TestProbeLoop_ErrorMeansNotServing(t *testing.T) {
	health := NewHealthServer()
	health.SetServingStatus(ServiceReadiness, grpc_health_v1.HealthCheckResponse_SERVING)
	m := obs.NewMetrics()
	logger := obs.NewLogger(obs.LoggerConfig{Format: obs.TextLogFormat, Output: io.Discard, Level: slog.LevelInfo})

	probe := func(ctx context.Context) (int, error) { return 0, errors.New("probe unreachable") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go ProbeLoop(ctx, probe, health, m, logger)

	require.Eventually(t, func() bool {
		resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceReadiness})
		return err == nil && resp.Status == grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}, time.Second, 10*time.Millisecond)
}
