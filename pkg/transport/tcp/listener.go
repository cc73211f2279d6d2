// Package tcp implements transport.Listener for plain TCP sockets.
package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/transport"
)

// Options tune accepted connections.
type Options struct {
	NoDelay   bool          // disable Nagle's algorithm
	KeepAlive time.Duration // 0 keeps the OS default, negative disables
	ReusePort bool          // SO_REUSEPORT, unix only
}

// Listener accepts TCP connections.
type Listener struct {
	nl   net.Listener
	opts Options

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Listener = (*Listener)(nil)

// Bind resolves addr and binds a listening socket to it. Port 0 lets the
// OS choose a port; use Addr to find out which. opts and deps may be nil.
// Errors are *transport.BindError.
func Bind(addr string, opts *Options, deps *config.Dependencies) (*Listener, error) {
	if opts == nil {
		opts = &Options{}
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, &transport.BindError{Network: "tcp", Addr: addr, Err: fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %w", addr, err)}
	}

	listen := config.GetTCPListenerFunc(deps)
	if opts.ReusePort && (deps == nil || deps.TCPListener == nil) {
		listen = listenReusePort
	}

	nl, err := listen("tcp", tcpAddr)
	if err != nil {
		return nil, &transport.BindError{Network: "tcp", Addr: addr, Err: err}
	}

	return &Listener{nl: nl, opts: *opts}, nil
}

// Next waits for the next connection.
func (l *Listener) Next() (net.Conn, error) {
	conn, err := l.nl.Accept()
	if err != nil {
		return nil, transport.Classify(fmt.Errorf("Accept(): %w", err))
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		l.tune(tc)
	}

	return conn, nil
}

// tune applies socket options. Failures are ignored, the connection is
// usable either way.
func (l *Listener) tune(tc *net.TCPConn) {
	if l.opts.NoDelay {
		_ = tc.SetNoDelay(true)
	}

	switch {
	case l.opts.KeepAlive > 0:
		_ = tc.SetKeepAlive(true)
		_ = tc.SetKeepAlivePeriod(l.opts.KeepAlive)
	case l.opts.KeepAlive < 0:
		_ = tc.SetKeepAlive(false)
	}
}

// Addr returns the address the socket is bound to.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Close closes the socket exactly once.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.nl.Close()
	})
	return l.closeErr
}
