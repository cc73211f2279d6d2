// Package mux implements transport.Listener for streams multiplexed over a
// single connection with yamux. Every stream the peer opens is yielded as
// a separate connection, so one accepted TCP connection can be served by a
// nested accept loop.
package mux

import (
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"net"
	"sync"

	"dominicbreuker/netserve/pkg/transport"

	"github.com/hashicorp/yamux"
)

// Listener accepts yamux streams.
type Listener struct {
	session *yamux.Session

	closeOnce sync.Once
	closeErr  error
}

var _ transport.Listener = (*Listener)(nil)

// NewListener starts the server side of a yamux session on conn. The
// listener owns conn from now on.
func NewListener(conn net.Conn) (*Listener, error) {
	session, err := yamux.Server(conn, Config())
	if err != nil {
		return nil, &transport.BindError{Network: "mux", Addr: conn.RemoteAddr().String(), Err: fmt.Errorf("yamux.Server(conn): %w", err)}
	}

	return &Listener{session: session}, nil
}

// Next waits for the peer to open a stream. A shut down session is fatal.
func (l *Listener) Next() (net.Conn, error) {
	stream, err := l.session.Accept()
	if err != nil {
		if errors.Is(err, yamux.ErrSessionShutdown) || l.session.IsClosed() {
			return nil, transport.Fatal(fmt.Errorf("session.Accept(): %w", err))
		}
		return nil, transport.Classify(fmt.Errorf("session.Accept(): %w", err))
	}

	return stream, nil
}

// Addr returns the local address of the carrier connection.
func (l *Listener) Addr() net.Addr {
	return l.session.Addr()
}

// Close shuts down the session, its streams and the carrier connection.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		l.closeErr = l.session.Close()
	})
	return l.closeErr
}

// AcceptBacklog is the number of opened streams yamux holds for Next. The
// peer cannot open another stream until Next has taken the held one.
const AcceptBacklog = 1

// Config returns the yamux configuration used on both sides.
func Config() *yamux.Config {
	cfg := yamux.DefaultConfig()
	cfg.AcceptBacklog = AcceptBacklog
	cfg.LogOutput = nil
	cfg.Logger = stdlog.New(io.Discard, "", stdlog.LstdFlags) // discard all console logging in yamux
	return cfg
}
