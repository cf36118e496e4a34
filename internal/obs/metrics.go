package obs

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
)

const namespace = "reshard_host"

// Metrics collects the Host Gateway's request, queue, and health-probe
// series, wired directly to promauto counters and gauges.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequestsTotal   *prometheus.CounterVec
	RPCDuration        *prometheus.HistogramVec
	QueueDepth         prometheus.Gauge
	QueueRejectedTotal prometheus.Counter
	EnclaveRoundTrip   prometheus.Histogram
	ReadinessUp        prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RPCRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Count of RPC requests by method and status code.",
		}, []string{"method", "code"}),
		RPCDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC handler latency by method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enclave_queue_depth",
			Help:      "Number of messages currently queued for the enclave.",
		}),
		QueueRejectedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enclave_queue_rejected_total",
			Help:      "Count of enqueue attempts rejected because the queue was full.",
		}),
		EnclaveRoundTrip: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enclave_round_trip_seconds",
			Help:      "Latency of a single enclave socket round trip.",
			Buckets:   prometheus.DefBuckets,
		}),
		ReadinessUp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "readiness",
			Help:      "1 if the last application health probe returned 200, else 0.",
		}),
	}
}

// RecordRPC returns a closure that, when called with the final status code,
// records both count and duration.
func (m *Metrics) RecordRPC(method string) func(code string) {
	start := time.Now()
	return func(code string) {
		m.RPCRequestsTotal.WithLabelValues(method, code).Inc()
		m.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}
}

type MetricsConfig struct {
	Enabled bool
	Host    string
	Port    int
}

const (
	MetricsEnabledFlagName = "metrics-enabled"
	MetricsHostFlagName    = "metrics-host"
	MetricsPortFlagName    = "metrics-port"
)

func MetricsCLIFlags() []cli.Flag {
	const category = "metrics"
	return []cli.Flag{
		&cli.BoolFlag{
			Name:     MetricsEnabledFlagName,
			Category: category,
			Usage:    "Enables the /metrics Prometheus endpoint",
			Value:    true,
		},
		&cli.StringFlag{
			Name:     MetricsHostFlagName,
			Category: category,
			Usage:    "Host to bind the metrics server to",
			Value:    "0.0.0.0",
		},
		&cli.IntFlag{
			Name:     MetricsPortFlagName,
			Category: category,
			Usage:    "Port to bind the metrics server to",
			Value:    9090,
		},
	}
}

func ReadMetricsConfig(ctx *cli.Context) MetricsConfig {
	return MetricsConfig{
		Enabled: ctx.Bool(MetricsEnabledFlagName),
		Host:    ctx.String(MetricsHostFlagName),
		Port:    ctx.Int(MetricsPortFlagName),
	}
}

// MetricsServer is a tiny http.Server wrapper exposing /metrics.
type MetricsServer struct {
	httpServer *http.Server
	listener   net.Listener
}

func (m *Metrics) StartServer(host string, port int) (*MetricsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	addr := fmt.Sprintf("%s:%d", host, port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("binding metrics listener: %w", err)
	}

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		_ = srv.Serve(listener)
	}()

	return &MetricsServer{httpServer: srv, listener: listener}, nil
}

func (s *MetricsServer) Addr() string {
	return s.listener.Addr().String()
}

func (s *MetricsServer) Stop(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
