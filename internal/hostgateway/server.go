package hostgateway

import (
	"context"
	"net"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tkhq/verifiable-apps/internal/bundlejson"
	"github.com/tkhq/verifiable-apps/internal/ersapi"
	"github.com/tkhq/verifiable-apps/internal/obs"
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// maxInboundMessageBytes caps inbound RPC messages at 25 MiB.
const maxInboundMessageBytes = 25 * 1024 * 1024

// enclaveRoundTripTimeout bounds how long a single RPC waits for its
// response once its message has been enqueued, distinct from the
// client's own socket I/O timeout: this also covers time spent waiting
// in the queue behind other in-flight messages.
const enclaveRoundTripTimeout = 30 * time.Second

// Gateway implements HostGatewayServer, enqueueing every RetrieveReshard
// call onto the bounded queue and awaiting its one-shot reply.
type Gateway struct {
	queue *Queue
	log   log.Logger
	m     *obs.Metrics
}

func NewGateway(queue *Queue, logger log.Logger, m *obs.Metrics) *Gateway {
	return &Gateway{queue: queue, log: logger, m: m}
}

// RetrieveReshard enqueues a RetrieveBundle request, waits for the
// consumer's reply, and serializes the resulting bundle as the external
// JSON contract.
func (g *Gateway) RetrieveReshard(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	recordDur := g.m.RecordRPC("RetrieveReshard")
	ctx = obs.ContextWithNewRequestID(ctx)
	logger := obs.RequestLogger(ctx, g.log)

	payload, err := ersapi.EncodeRetrieveBundle()
	if err != nil {
		recordDur(codes.Internal.String())
		return nil, status.Errorf(codes.Internal, "encoding enclave request: %v", err)
	}

	respChan := make(chan EnclaveQueueResult, 1)
	if err := g.queue.TrySend(&EnclaveQueueMsg{Request: payload, ResponseChan: respChan}); err != nil {
		recordDur(codes.Unavailable.String())
		g.m.QueueRejectedTotal.Inc()
		logger.Warn("enclave queue full")
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, enclaveRoundTripTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		recordDur(codes.Internal.String())
		return nil, status.Error(codes.Internal, "timed out waiting for enclave response")
	case result := <-respChan:
		if result.Err != nil {
			recordDur(codes.Internal.String())
			return nil, status.Errorf(codes.Internal, "enclave round trip failed: %v", result.Err)
		}
		msg, err := ersapi.Decode(result.Response)
		if err != nil || msg.Variant != ersapi.VariantBundle {
			recordDur(codes.Internal.String())
			return nil, status.Error(codes.Internal, "enclave returned an unexpected response")
		}
		jsonBundle, err := bundlejson.Marshal(msg.Bundle)
		if err != nil {
			recordDur(codes.Internal.String())
			return nil, status.Errorf(codes.Internal, "marshaling bundle: %v", err)
		}
		recordDur(codes.OK.String())
		return wrapperspb.String(jsonBundle), nil
	}
}

// Server owns the gRPC listener, the bounded queue, and its single
// consumer goroutine.
type Server struct {
	grpcServer *grpc.Server
	health     *HealthServer
	listener   net.Listener
	queue      *Queue
	client     *EnclaveClient
	log        log.Logger
}

// NewServer wires the gRPC server: the RetrieveReshard service, the
// health service, and inbound message-size limits.
func NewServer(network, address string, queue *Queue, client *EnclaveClient, logger log.Logger, m *obs.Metrics) (*Server, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, rerr.Internal("binding host gateway listener: %w", err)
	}

	grpcServer := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxInboundMessageBytes),
		grpc.MaxSendMsgSize(maxInboundMessageBytes),
	)

	health := NewHealthServer()
	health.SetServingStatus(ServiceLiveness, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, health)

	RegisterHostGatewayServer(grpcServer, NewGateway(queue, logger, m))

	return &Server{
		grpcServer: grpcServer,
		health:     health,
		listener:   ln,
		queue:      queue,
		client:     client,
		log:        logger,
	}, nil
}

func (s *Server) Addr() net.Addr { return s.listener.Addr() }

func (s *Server) Health() *HealthServer { return s.health }

// Serve blocks, running the gRPC server and the queue's single consumer
// task side by side until shutdownCh fires.
// On shutdown the gRPC server exits gracefully (in-flight requests
// drain) and the queue is closed so the consumer exits once it has
// finished the messages still left in the queue.
func (s *Server) Serve(ctx context.Context, consumer *Consumer, shutdownCh <-chan struct{}) error {
	consumerDone := make(chan struct{})
	go func() {
		consumer.Run(ctx)
		close(consumerDone)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-shutdownCh:
		s.log.Info("shutting down host gateway")
		s.grpcServer.GracefulStop()
		s.queue.Close()
		<-consumerDone
		return nil
	case err := <-serveErr:
		s.queue.Close()
		<-consumerDone
		return err
	}
}
