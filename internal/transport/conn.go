// Package transport owns the TCP connections the RPC client runs over:
// dialing with a randomly drawn local ephemeral port, per-operation
// deadlines, and a registry for bulk teardown.
package transport

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/cubbit/nfsclient/internal/logger"
)

// Options configures how connections are dialed.
type Options struct {
	// Timeout bounds every blocking socket operation: the initial
	// connect and each subsequent read and write.
	Timeout time.Duration

	// LocalPortMin and LocalPortMax bound the ephemeral range local
	// ports are drawn from. Zero values let the OS choose.
	//
	// Drawing our own random ports keeps repeated reconnects within
	// one process from landing on the ephemeral port the OS would
	// otherwise immediately reassign, which servers can mistake for
	// the old, poisoned connection.
	LocalPortMin int
	LocalPortMax int

	// BindAttempts caps how many candidate ports are tried before
	// giving up on a bind collision.
	BindAttempts int
}

// DefaultBindAttempts is used when Options.BindAttempts is zero.
const DefaultBindAttempts = 32

// ConnectError reports that a connection could not be established:
// either every candidate local port collided or the remote connect
// itself failed.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Conn is a single TCP connection to an RPC service. It is not safe
// for concurrent use; the call engine serializes all traffic on it.
type Conn struct {
	id        uuid.UUID
	conn      net.Conn
	addr      string
	localPort int
	timeout   time.Duration
	registry  *Registry
	closed    atomic.Bool
}

// Dial opens a TCP connection to host:port, binding the local side to
// a random port from the configured range and re-drawing on bind
// collisions. The connection is registered with registry (if non-nil)
// for bulk teardown.
func Dial(host string, port int, opts Options, registry *Registry) (*Conn, error) {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))

	attempts := opts.BindAttempts
	if attempts <= 0 {
		attempts = DefaultBindAttempts
	}

	var lastErr error
	for attempt := range attempts {
		localPort := 0
		if opts.LocalPortMin > 0 && opts.LocalPortMax >= opts.LocalPortMin {
			localPort = opts.LocalPortMin + rand.Intn(opts.LocalPortMax-opts.LocalPortMin+1)
		}

		dialer := net.Dialer{Timeout: opts.Timeout}
		if localPort > 0 {
			dialer.LocalAddr = &net.TCPAddr{Port: localPort}
		}

		netConn, err := dialer.Dial("tcp", addr)
		if err != nil {
			if isAddrInUse(err) {
				logger.Warn("Local port %d in use (attempt %d), drawing another", localPort, attempt+1)
				lastErr = err
				continue
			}
			return nil, &ConnectError{Addr: addr, Err: err}
		}

		c := &Conn{
			id:        uuid.New(),
			conn:      netConn,
			addr:      addr,
			localPort: localAddrPort(netConn),
			timeout:   opts.Timeout,
			registry:  registry,
		}
		if registry != nil {
			registry.register(c)
		}

		logger.Debug("Connected to %s from local port %d (conn %s)", addr, c.localPort, c.id)
		return c, nil
	}

	return nil, &ConnectError{
		Addr: addr,
		Err:  fmt.Errorf("no free local port after %d attempts: %w", attempts, lastErr),
	}
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

func localAddrPort(c net.Conn) int {
	if tcp, ok := c.LocalAddr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Read applies the configured deadline and reads from the socket.
// An expired deadline surfaces as a net.Error with Timeout() == true.
func (c *Conn) Read(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.conn.Read(p)
}

// Write applies the configured deadline and writes to the socket.
func (c *Conn) Write(p []byte) (int, error) {
	if c.timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.conn.Write(p)
}

// Close closes the socket and unregisters the connection. Closing an
// already-closed connection is a no-op, not an error.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if c.registry != nil {
		c.registry.unregister(c.id)
	}

	err := c.conn.Close()
	logger.Debug("Closed connection to %s (local port %d released)", c.addr, c.localPort)
	return err
}

// ID returns the connection's registry key.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// LocalPort returns the bound local port.
func (c *Conn) LocalPort() int {
	return c.localPort
}

// RemoteAddr returns the dialed host:port.
func (c *Conn) RemoteAddr() string {
	return c.addr
}
