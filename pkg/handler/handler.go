// Package handler provides the connection handlers served by the CLI.
package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"dominicbreuker/netserve/pkg/executor"
	"dominicbreuker/netserve/pkg/log"
	"dominicbreuker/netserve/pkg/pipeio"
	"dominicbreuker/netserve/pkg/semaphore"
	"dominicbreuker/netserve/pkg/server"
	"dominicbreuker/netserve/pkg/transport"
	"dominicbreuker/netserve/pkg/transport/mux"

	"github.com/hashicorp/yamux"
)

// Names of the handlers known to New.
const (
	NameEcho    = "echo"
	NameDiscard = "discard"
	NameStdio   = "stdio"
	NameMuxEcho = "mux-echo"
)

// ErrStdioBusy is returned by the stdio handler while another connection
// is attached to the terminal.
var ErrStdioBusy = errors.New("stdio is attached to another connection")

// New returns the handler called name.
func New(ctx context.Context, name string, logger *log.Logger) (transport.Handler, error) {
	switch name {
	case NameEcho:
		return Echo, nil
	case NameDiscard:
		return Discard, nil
	case NameStdio:
		return Stdio(ctx, nil, nil, logger), nil
	case NameMuxEcho:
		return Mux(ctx, Echo, executor.NewGoroutine(), logger), nil
	default:
		return nil, fmt.Errorf("unknown handler %q, want %s|%s|%s|%s", name, NameEcho, NameDiscard, NameStdio, NameMuxEcho)
	}
}

// Echo writes back everything the peer sends until it hangs up.
func Echo(conn net.Conn) error {
	if _, err := io.Copy(conn, conn); err != nil && !pipeio.IsClosed(err) {
		return fmt.Errorf("io.Copy(conn, conn): %w", err)
	}
	return nil
}

// Discard reads and drops everything the peer sends.
func Discard(conn net.Conn) error {
	if _, err := io.Copy(io.Discard, conn); err != nil && !pipeio.IsClosed(err) {
		return fmt.Errorf("io.Copy(io.Discard, conn): %w", err)
	}
	return nil
}

// Stdio attaches a connection to in and out, nil meaning the process'
// stdin and stdout. Only one connection is attached at a time; others
// are refused with ErrStdioBusy.
func Stdio(ctx context.Context, in io.Reader, out io.Writer, logger *log.Logger) transport.Handler {
	attached := semaphore.New(1, 0)

	return func(conn net.Conn) error {
		if !attached.TryAcquire() {
			return ErrStdioBusy
		}
		defer attached.Release()

		logger.VerboseMsg("Attaching stdio to %s", conn.RemoteAddr())
		pipeio.Pipe(ctx, conn, pipeio.NewStdio(in, out), func(err error) {
			logger.ErrorMsg("Pipe(stdio): %s", err)
		})
		return nil
	}
}

// Mux serves every accepted connection as a yamux session. Each stream the
// peer opens is handed to inner on exec, through the same accept loop that
// serves the outer listener. The session ends when the peer hangs up or
// ctx is cancelled.
func Mux(ctx context.Context, inner transport.Handler, exec executor.Executor, logger *log.Logger) transport.Handler {
	return func(conn net.Conn) error {
		l, err := mux.NewListener(conn)
		if err != nil {
			return err
		}
		defer l.Close()

		err = server.Run(ctx, l, exec, inner, &server.Options{Logger: logger})
		if errors.Is(err, server.ErrServerClosed) || sessionEnded(err) {
			return nil
		}
		return err
	}
}

func sessionEnded(err error) bool {
	return errors.Is(err, yamux.ErrSessionShutdown) || pipeio.IsClosed(err)
}
