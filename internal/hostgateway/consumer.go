package hostgateway

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/tkhq/verifiable-apps/internal/obs"
)

// Consumer is the single task that drains Queue and serializes requests
// onto the enclave socket. There must be exactly one Consumer per Queue:
// the FIFO ordering guarantee depends on a single goroutine draining it.
type Consumer struct {
	queue  *Queue
	client *EnclaveClient
	log    log.Logger
	m      *obs.Metrics
}

func NewConsumer(queue *Queue, client *EnclaveClient, logger log.Logger, m *obs.Metrics) *Consumer {
	return &Consumer{queue: queue, client: client, log: logger, m: m}
}

// Run drains the queue until it is closed and empty. A caller that
// disconnected while its message was queued or in flight still has its
// round trip completed against the enclave (the call is not cancellable
// mid-flight); the result is simply discarded because ResponseChan is
// buffered and nobody is left to read it.
func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, ok := c.queue.Receive()
		if !ok {
			return
		}
		c.m.QueueDepth.Set(float64(c.queue.Len()))

		start := time.Now()
		resp, err := c.client.RoundTrip(ctx, msg.Request)
		c.m.EnclaveRoundTrip.Observe(time.Since(start).Seconds())
		if err != nil {
			c.log.Warn("enclave round trip failed", "err", err)
		}

		msg.ResponseChan <- EnclaveQueueResult{Response: resp, Err: err}
	}
}
