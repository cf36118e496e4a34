package hostgateway

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// Health service names. The empty name is the overall/default service
// grpc_health_v1 conventionally checks when a caller omits Service.
const (
	ServiceLiveness  = "liveness"
	ServiceReadiness = "readiness"
)

// watchInterval is how often Watch re-emits the current status.
const watchInterval = 3 * time.Second

// HealthServer implements grpc_health_v1.HealthServer with two-tier
// liveness/readiness reporting. It is a from-scratch implementation
// rather than a thin wrapper over google.golang.org/grpc/health's
// Server: that package's Watch streams only on status change, and the
// orchestration layer here wants a fixed-interval emission, so the
// status table is reimplemented directly against the same
// grpc_health_v1 wire types.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer

	mu       sync.RWMutex
	statuses map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
}

func NewHealthServer() *HealthServer {
	return &HealthServer{
		statuses: map[string]grpc_health_v1.HealthCheckResponse_ServingStatus{
			"":               grpc_health_v1.HealthCheckResponse_SERVING,
			ServiceLiveness:  grpc_health_v1.HealthCheckResponse_SERVING,
			ServiceReadiness: grpc_health_v1.HealthCheckResponse_NOT_SERVING,
		},
	}
}

// SetServingStatus updates the serving status for a named service
// (readiness flips with each app probe result).
func (h *HealthServer) SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses[service] = status
}

func (h *HealthServer) lookup(service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s, ok := h.statuses[service]
	return s, ok
}

// Check implements the single-shot health probe.
func (h *HealthServer) Check(_ context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	status, ok := h.lookup(req.GetService())
	if !ok {
		return nil, statusNotFound(req.GetService())
	}
	return &grpc_health_v1.HealthCheckResponse{Status: status}, nil
}

// Watch implements the streaming health probe: one status every
// watchInterval until the client disconnects.
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	if _, ok := h.lookup(req.GetService()); !ok {
		return statusNotFound(req.GetService())
	}

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	send := func() error {
		status, _ := h.lookup(req.GetService())
		return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: status})
	}
	if err := send(); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := send(); err != nil {
				return err
			}
		}
	}
}

func statusNotFound(service string) error {
	return status.Errorf(codes.NotFound, "unknown service %q", service)
}
