package enclaveserver

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/tkhq/verifiable-apps/internal/proxyproto"
)

// Server owns the local stream socket ERS listens on: a raw
// net.Listener rather than an http.Server, since the wire protocol here
// is proxyproto framing, not HTTP.
type Server struct {
	log       log.Logger
	processor *Processor
	listener  net.Listener

	wg sync.WaitGroup
}

// NewServer binds the given network/address (e.g. "unix", "/path/to.sock")
// and returns a Server ready to Serve. Binding is the last step of ERS
// startup: it must only happen after the ceremony has produced a bundle
// (the process must refuse to bind its socket on any earlier failure).
func NewServer(network, address string, processor *Processor, logger log.Logger) (*Server, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		return nil, err
	}
	return &Server{log: logger, processor: processor, listener: ln}, nil
}

// Addr reports the bound listener address, useful for tests that bind to
// an ephemeral path/port.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the listener is closed. ERS handles one
// connection at a time, and within a connection, one frame at a time: the
// processor is single-threaded by construction.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		s.handleConn(conn)
		s.wg.Done()
	}
}

// Close stops accepting new connections. A connection Serve is already
// handling keeps being served until its peer closes it or a frame error
// ends it; only then does Serve return.
func (s *Server) Close() error {
	return s.listener.Close()
}

// handleConn runs synchronously in Serve's goroutine rather than spawning
// one per connection: ERS is meant to serve a single Host Gateway client
// whose own socket client multiplexes concurrent RPCs onto one physical
// connection, so there is never a reason for ERS itself to juggle
// multiple live connections.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	for {
		kind, body, err := proxyproto.ReadFrame(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.log.Debug("closing enclave socket connection after frame error", "err", err)
			return
		}

		switch kind {
		case proxyproto.KindProxyRequest:
			var req proxyproto.ProxyRequest
			if err := proxyproto.DecodeBody(body, &req); err != nil {
				s.log.Debug("malformed proxy request frame", "err", err)
				continue
			}
			respData := s.processor.Process(req.Data)
			if err := proxyproto.WriteFrame(conn, proxyproto.KindProxyResponse, &proxyproto.ProxyResponse{Data: respData}); err != nil {
				s.log.Debug("writing proxy response", "err", err)
				return
			}
		case proxyproto.KindLiveAttestationDocRequest:
			resp := &proxyproto.LiveAttestationDocResponse{NSMResponse: s.processor.bundle.AttestationDoc}
			if err := proxyproto.WriteFrame(conn, proxyproto.KindLiveAttestationDocResponse, resp); err != nil {
				s.log.Debug("writing attestation response", "err", err)
				return
			}
		default:
			s.log.Debug("unexpected frame kind on enclave socket", "kind", kind)
		}
	}
}
