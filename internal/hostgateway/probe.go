package hostgateway

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/tkhq/verifiable-apps/internal/obs"
)

// probeInterval is how often the app-health function runs.
const probeInterval = 5 * time.Second

// AppHealthFunc returns an HTTP-style status code for the application the
// Host Gateway proxies into the enclave. Readiness tracks exactly this
// code: 200 means Serving, anything else (including a returned error,
// mapped to 0) means NotServing.
type AppHealthFunc func(ctx context.Context) (code int, err error)

// HTTPAppHealthFunc builds an AppHealthFunc from a plain GET against url,
// the common case for "the application" being an ordinary HTTP health
// endpoint.
func HTTPAppHealthFunc(client *http.Client, url string) AppHealthFunc {
	return func(ctx context.Context) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return 0, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()
		return resp.StatusCode, nil
	}
}

// ProbeLoop runs probe in a loop every probeInterval, translating its
// result into the readiness reporter's serving status.
// Errors never panic the loop; they simply count as NotServing.
func ProbeLoop(ctx context.Context, probe AppHealthFunc, health *HealthServer, m *obs.Metrics, logger log.Logger) {
	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	runOnce := func() {
		code, err := probe(ctx)
		if err != nil {
			logger.Warn("app health probe failed", "err", err)
			code = 0
		}
		if code == http.StatusOK {
			health.SetServingStatus(ServiceReadiness, grpc_health_v1.HealthCheckResponse_SERVING)
			m.ReadinessUp.Set(1)
		} else {
			health.SetServingStatus(ServiceReadiness, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			m.ReadinessUp.Set(0)
		}
	}

	runOnce()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
