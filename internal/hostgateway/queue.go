// Package hostgateway implements the Host Gateway: the network-facing RPC
// server that fans concurrent callers onto a single, ordered enclave
// socket connection.
package hostgateway

import (
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// QueueCapacity is the bounded FIFO's fixed size: small on
// purpose, to bound queuing latency and surface backpressure quickly.
const QueueCapacity = 12

// EnclaveQueueMsg is one pending enclave round trip: a request payload and
// the one-shot channel its response (or a terminal error) is delivered on.
type EnclaveQueueMsg struct {
	Request      []byte
	ResponseChan chan EnclaveQueueResult
}

// EnclaveQueueResult is what the consumer delivers on ResponseChan: either
// a response payload or the error that ended the round trip.
type EnclaveQueueResult struct {
	Response []byte
	Err      error
}

// Queue is the shared bounded FIFO between RPC handlers (producers) and the
// single consumer task draining it onto the enclave socket client. The
// sender side is safe for concurrent use by all RPC handlers and the probe
// loop; the receiver is owned exclusively by the consumer.
type Queue struct {
	ch chan *EnclaveQueueMsg
}

// NewQueue constructs a Queue at QueueCapacity.
func NewQueue() *Queue {
	return &Queue{ch: make(chan *EnclaveQueueMsg, QueueCapacity)}
}

// TrySend enqueues msg without blocking. If the queue is full it returns
// rerr.Unavailable immediately, preserving the backpressure signal to the
// caller.
func (q *Queue) TrySend(msg *EnclaveQueueMsg) error {
	select {
	case q.ch <- msg:
		return nil
	default:
		return rerr.Unavailable("enclave request queue is full")
	}
}

// Len reports the current queue depth, used to feed the queue-depth gauge.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close signals the consumer to exit once it has drained any messages
// already enqueued.
func (q *Queue) Close() {
	close(q.ch)
}

// Receive blocks until a message is available or the queue is closed and
// drained, in which case ok is false. Only the single consumer goroutine
// may call this.
func (q *Queue) Receive() (msg *EnclaveQueueMsg, ok bool) {
	msg, ok = <-q.ch
	return msg, ok
}
