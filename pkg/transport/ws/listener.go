// Package ws implements transport.Listener for WebSocket connections. An
// HTTP server upgrades incoming requests and hands every upgraded
// connection to the caller of Next as a net.Conn.
//
// The HTTP server only accepts a TCP connection while a Next call is
// waiting for one, so pending clients stay in the OS backlog and no
// handshake is completed on behalf of nobody.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"dominicbreuker/netserve/pkg/log"
	"dominicbreuker/netserve/pkg/transport"

	"github.com/coder/websocket"
)

// Subprotocol is negotiated with clients.
const Subprotocol = "bin"

// ErrNoUpgrade is the cause of transient errors for connections that
// ended without a websocket upgrade.
var ErrNoUpgrade = errors.New("connection closed before websocket upgrade")

// Options configure the HTTP side of the listener.
type Options struct {
	HandshakeTimeout time.Duration // ReadHeaderTimeout of the HTTP server
	Logger           *log.Logger
}

type upgraded struct {
	conn net.Conn
	err  error
}

// Listener accepts WebSocket connections.
type Listener struct {
	nl     net.Listener
	srv    *http.Server
	logger *log.Logger

	// a Next call sends a token; the gated listener accepts one TCP
	// connection per token
	tokens chan struct{}
	// outcome of the connection accepted for the waiting Next
	handoff chan upgraded

	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error

	served   chan struct{}
	serveErr error
}

var _ transport.Listener = (*Listener)(nil)

type connKey struct{}

// Bind binds a TCP socket to addr and starts serving WebSocket upgrades on
// it. opts may be nil.
func Bind(addr string, opts *Options) (*Listener, error) {
	if opts == nil {
		opts = &Options{}
	}

	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, &transport.BindError{Network: "ws", Addr: addr, Err: fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %w", addr, err)}
	}

	nl, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, &transport.BindError{Network: "ws", Addr: addr, Err: err}
	}

	l := &Listener{
		nl:      nl,
		logger:  opts.Logger,
		tokens:  make(chan struct{}),
		handoff: make(chan upgraded),
		closeCh: make(chan struct{}),
		served:  make(chan struct{}),
	}

	headerTimeout := opts.HandshakeTimeout
	if headerTimeout <= 0 {
		headerTimeout = 10 * time.Second
	}

	l.srv = &http.Server{
		Handler:           http.HandlerFunc(l.upgrade),
		ReadHeaderTimeout: headerTimeout,
		ReadTimeout:       0, // hijacked connections manage their own deadlines
		WriteTimeout:      0,
		ConnContext: func(ctx context.Context, c net.Conn) context.Context {
			return context.WithValue(ctx, connKey{}, c)
		},
	}
	// one request per TCP connection, so every accepted connection has
	// exactly one outcome
	l.srv.SetKeepAlivesEnabled(false)

	go func() {
		l.serveErr = l.srv.Serve(&gatedListener{Listener: nl, l: l})
		close(l.served)
	}()

	return l, nil
}

func (l *Listener) upgrade(w http.ResponseWriter, r *http.Request) {
	tc, _ := r.Context().Value(connKey{}).(*trackedConn)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{Subprotocol},
	})
	if err != nil {
		// websocket.Accept already wrote the HTTP error response; returning
		// lets the server send it and close the connection
		tc.report(upgraded{err: transport.Transient(fmt.Errorf("websocket.Accept(%s): %w", r.RemoteAddr, err))})
		return
	}

	// the connection outlives this request, so it must not use r.Context()
	tc.report(upgraded{conn: &conn{
		Conn:   websocket.NetConn(context.Background(), c, websocket.MessageBinary),
		local:  l.nl.Addr(),
		remote: parseAddr(r.RemoteAddr),
	}})
}

// deliver passes u to the waiting Next call. It never blocks past Close.
func (l *Listener) deliver(u upgraded) {
	select {
	case l.handoff <- u:
	case <-l.closeCh:
		if u.conn != nil {
			_ = u.conn.Close()
		}
	}
}

// Next lets the HTTP server accept one connection and waits for its
// upgrade. Failed upgrades are returned as transient errors.
func (l *Listener) Next() (net.Conn, error) {
	select {
	case <-l.closeCh:
		return nil, transport.Fatal(transport.ErrListenerClosed)
	default:
	}

	select {
	case l.tokens <- struct{}{}:
	case <-l.closeCh:
		return nil, transport.Fatal(transport.ErrListenerClosed)
	case <-l.served:
		return nil, l.serveError()
	}

	select {
	case u := <-l.handoff:
		if u.err != nil {
			l.logger.VerboseMsg("WebSocket upgrade failed: %s", u.err)
		}
		return u.conn, u.err
	case <-l.closeCh:
		return nil, transport.Fatal(transport.ErrListenerClosed)
	case <-l.served:
		return nil, l.serveError()
	}
}

func (l *Listener) serveError() error {
	select {
	case <-l.closeCh:
		return transport.Fatal(transport.ErrListenerClosed)
	default:
	}
	if errors.Is(l.serveErr, http.ErrServerClosed) {
		return transport.Fatal(transport.ErrListenerClosed)
	}
	return transport.Fatal(fmt.Errorf("http.Server.Serve(): %w", l.serveErr))
}

// Addr returns the address of the TCP socket.
func (l *Listener) Addr() net.Addr {
	return l.nl.Addr()
}

// Close stops the HTTP server. Upgraded connections already returned by
// Next stay open.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.closeErr = l.srv.Close()
	})
	return l.closeErr
}

// gatedListener accepts a TCP connection only for a token sent by Next.
type gatedListener struct {
	net.Listener
	l *Listener
}

func (g *gatedListener) Accept() (net.Conn, error) {
	for {
		select {
		case <-g.l.tokens:
		case <-g.l.closeCh:
			return nil, net.ErrClosed
		}

		c, err := g.Listener.Accept()
		if err == nil {
			return &trackedConn{Conn: c, l: g.l}, nil
		}

		// the token was spent, so the waiting Next gets the error
		aerr := transport.Classify(fmt.Errorf("Accept(): %w", err))
		g.l.deliver(upgraded{err: aerr})
		if transport.IsFatal(aerr) {
			return nil, err
		}
	}
}

// trackedConn reports exactly one outcome for an accepted connection: its
// upgrade, its failed upgrade or, if the server closes it before any
// request was handled, ErrNoUpgrade.
type trackedConn struct {
	net.Conn
	l    *Listener
	once sync.Once
}

func (c *trackedConn) report(u upgraded) {
	if c == nil {
		return
	}
	c.once.Do(func() { c.l.deliver(u) })
}

func (c *trackedConn) Close() error {
	err := c.Conn.Close()
	c.report(upgraded{err: transport.Transient(fmt.Errorf("%s: %w", c.RemoteAddr(), ErrNoUpgrade))})
	return err
}

// conn reports real TCP addresses instead of the websocket placeholders.
type conn struct {
	net.Conn
	local  net.Addr
	remote net.Addr
}

func (c *conn) LocalAddr() net.Addr  { return c.local }
func (c *conn) RemoteAddr() net.Addr { return c.remote }

func parseAddr(s string) net.Addr {
	addr, err := net.ResolveTCPAddr("tcp", s)
	if err != nil {
		return &net.TCPAddr{}
	}
	return addr
}
