// Package enclavesim provides a fault-injectable stand-in for the enclave
// reshard service: a proxyproto listener whose replies can be stalled, so
// tests can hold the host gateway's single consumer in flight and observe
// queue backpressure.
package enclavesim

import (
	"net"
	"sync"

	"github.com/tkhq/verifiable-apps/internal/proxyproto"
)

// Simulator listens on a stream socket and answers ProxyRequest frames
// through the supplied handler. Unlike the real enclave server it accepts
// concurrent connections, because a gateway client that times out redials
// while the stalled connection is still being held open.
type Simulator struct {
	ln       net.Listener
	handler  func([]byte) []byte
	received chan struct{}

	stall sync.Mutex
}

// New binds network/address and starts serving immediately. handler maps
// one opaque request payload to its response payload; the real processor's
// Process method satisfies it directly.
func New(network, address string, handler func([]byte) []byte) (*Simulator, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	s := &Simulator{
		ln:       ln,
		handler:  handler,
		received: make(chan struct{}, 64),
	}
	go s.serve()
	return s, nil
}

func (s *Simulator) Addr() net.Addr { return s.ln.Addr() }

// Received fires once per request frame read off the socket, before the
// stall gate is taken: a test can wait on it to know the consumer is in
// flight even while replies are stalled.
func (s *Simulator) Received() <-chan struct{} { return s.received }

// Stall blocks every reply until Resume is called. Requests are still
// read (and signalled via Received); only the responses are held back.
func (s *Simulator) Stall() { s.stall.Lock() }

// Resume releases all replies held by Stall.
func (s *Simulator) Resume() { s.stall.Unlock() }

func (s *Simulator) Close() error { return s.ln.Close() }

func (s *Simulator) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Simulator) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		kind, body, err := proxyproto.ReadFrame(conn)
		if err != nil {
			return
		}
		if kind != proxyproto.KindProxyRequest {
			return
		}
		var req proxyproto.ProxyRequest
		if err := proxyproto.DecodeBody(body, &req); err != nil {
			return
		}

		select {
		case s.received <- struct{}{}:
		default:
		}

		s.stall.Lock()
		s.stall.Unlock() //nolint:staticcheck // gate, not a critical section

		resp := s.handler(req.Data)
		if err := proxyproto.WriteFrame(conn, proxyproto.KindProxyResponse, &proxyproto.ProxyResponse{Data: resp}); err != nil {
			return
		}
	}
}
