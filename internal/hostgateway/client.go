package hostgateway

import (
	"context"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tkhq/verifiable-apps/internal/proxyproto"
	"github.com/tkhq/verifiable-apps/internal/rerr"
)

// EnclaveClient is the blocking socket client the single queue consumer
// uses to talk to ERS. Its I/O is synchronous (the enclave side is a
// single-threaded processor), so this type is deliberately not safe to
// share across concurrent callers beyond the one consumer
// goroutine that owns it; sem exists to make that single-flight
// constraint explicit and enforced rather than merely documented.
type EnclaveClient struct {
	dial    func(ctx context.Context) (net.Conn, error)
	timeout time.Duration
	sem     *semaphore.Weighted

	conn net.Conn
}

// NewEnclaveClient builds a client that dials network/address (e.g.
// "unix", "/path/to.sock") on demand, with an absolute I/O timeout of
// 2 * appSocketClientTimeout.
func NewEnclaveClient(network, address string, appSocketClientTimeout time.Duration) *EnclaveClient {
	dialer := &net.Dialer{Timeout: appSocketClientTimeout}
	return &EnclaveClient{
		dial: func(ctx context.Context) (net.Conn, error) {
			return dialer.DialContext(ctx, network, address)
		},
		timeout: 2 * appSocketClientTimeout,
		sem:     semaphore.NewWeighted(1),
	}
}

// RoundTrip sends one opaque application payload to the enclave and
// returns its reply, enforcing the client's I/O timeout. On any socket
// error it drops the underlying connection so the next call redials,
// since a half-written/half-read proxyproto stream can't be resumed.
func (c *EnclaveClient) RoundTrip(ctx context.Context, payload []byte) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, rerr.Internal("acquiring enclave socket: %w", err)
	}
	defer c.sem.Release(1)

	deadline := time.Now().Add(c.timeout)

	if c.conn == nil {
		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		defer cancel()
		conn, err := c.dial(dialCtx)
		if err != nil {
			return nil, rerr.Internal("dialing enclave socket: %w", err)
		}
		c.conn = conn
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, rerr.Internal("setting enclave socket deadline: %w", err)
	}

	if err := proxyproto.WriteFrame(c.conn, proxyproto.KindProxyRequest, &proxyproto.ProxyRequest{Data: payload}); err != nil {
		c.closeConn()
		return nil, rerr.Internal("writing enclave request: %w", err)
	}

	kind, body, err := proxyproto.ReadFrame(c.conn)
	if err != nil {
		c.closeConn()
		return nil, rerr.Internal("reading enclave response: %w", err)
	}
	if kind != proxyproto.KindProxyResponse {
		c.closeConn()
		return nil, rerr.Internal("unexpected frame kind %d from enclave", kind)
	}
	var resp proxyproto.ProxyResponse
	if err := proxyproto.DecodeBody(body, &resp); err != nil {
		c.closeConn()
		return nil, rerr.Internal("decoding enclave response: %w", err)
	}
	return resp.Data, nil
}

func (c *EnclaveClient) closeConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close releases the underlying connection, if any.
func (c *EnclaveClient) Close() error {
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
