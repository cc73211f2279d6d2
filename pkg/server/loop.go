package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"dominicbreuker/netserve/pkg/executor"
	"dominicbreuker/netserve/pkg/log"
	"dominicbreuker/netserve/pkg/semaphore"
	"dominicbreuker/netserve/pkg/transport"
)

// ErrServerClosed is returned by Run after its context was cancelled.
var ErrServerClosed = errors.New("server closed")

const (
	minRetryDelay = 5 * time.Millisecond
	maxRetryDelay = 1 * time.Second
)

// Options tune the accept loop. The zero value accepts as fast as
// connections arrive and dispatches every one of them.
type Options struct {
	Logger *log.Logger

	// Admission, if set, must grant a slot before the loop accepts a
	// connection. The slot is held until the handler returns, so at most
	// Admission.Cap() connections are handled at once and the rest wait
	// in the OS backlog.
	Admission *semaphore.ConnSemaphore

	// EscalateCapacity makes an executor.ErrCapacity from Spawn fatal.
	// By default the connection is dropped and the loop continues.
	EscalateCapacity bool

	// SleepOnErrors backs off after accept errors caused by resource
	// exhaustion, starting at 5ms and doubling up to 1s.
	SleepOnErrors bool

	// OnAcceptError observes transient accept errors and dropped
	// connections. It runs on the loop's goroutine.
	OnAcceptError func(error)

	// WrapConn decorates connections before they reach the handler.
	WrapConn func(net.Conn) net.Conn
}

// Run accepts connections from l and submits one task per connection to
// exec. Each task calls handle, then closes the connection. Run never
// waits for a task.
//
// Run returns only when the loop is over: with ErrServerClosed after ctx
// is cancelled (which also closes l), or with the fatal error that ended
// it. Transient accept errors are never returned. Tasks already handed
// to exec keep running after Run returned.
func Run(ctx context.Context, l transport.Listener, exec executor.Executor, handle transport.Handler, opts *Options) error {
	if opts == nil {
		opts = &Options{}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = l.Close()
	})
	defer stop()

	lp := &loop{ctx: ctx, l: l, exec: exec, handle: handle, opts: opts, logger: opts.Logger}
	return lp.run()
}

type loop struct {
	ctx    context.Context
	l      transport.Listener
	exec   executor.Executor
	handle transport.Handler
	opts   *Options
	logger *log.Logger

	delay time.Duration
}

func (lp *loop) run() error {
	for {
		if err := lp.admit(); err != nil {
			return err
		}

		conn, err := lp.l.Next()
		if err != nil {
			lp.opts.Admission.Release()

			if lp.ctx.Err() != nil {
				return ErrServerClosed
			}
			if transport.IsFatal(err) {
				return fmt.Errorf("accepting on %s: %w", lp.l.Addr(), err)
			}

			lp.observe(err)
			if err := lp.backoff(err); err != nil {
				return err
			}
			continue
		}

		lp.delay = 0
		if err := lp.dispatch(conn); err != nil {
			return err
		}
	}
}

// admit blocks until the admission semaphore grants a slot. Timeouts are
// logged and the wait starts over.
func (lp *loop) admit() error {
	for {
		err := lp.opts.Admission.Acquire(lp.ctx)
		switch {
		case err == nil:
			return nil
		case lp.ctx.Err() != nil:
			return ErrServerClosed
		case errors.Is(err, semaphore.ErrTimeout):
			lp.logger.VerboseMsg("All %d connection slots busy, still waiting", lp.opts.Admission.Cap())
		default:
			return fmt.Errorf("admission: %w", err)
		}
	}
}

func (lp *loop) dispatch(conn net.Conn) error {
	peer := conn.RemoteAddr()

	err := lp.exec.Spawn(func() {
		defer lp.opts.Admission.Release()
		lp.serve(conn)
	})
	if err == nil {
		lp.logger.VerboseMsg("Dispatched connection from %s", peer)
		return nil
	}

	lp.opts.Admission.Release()
	_ = conn.Close()

	if errors.Is(err, executor.ErrCapacity) && !lp.opts.EscalateCapacity {
		lp.logger.ErrorMsg("Dropping connection from %s: %s", peer, err)
		lp.report(err)
		return nil
	}

	return fmt.Errorf("dispatching connection from %s: %w", peer, err)
}

// serve runs on the executor. Whatever the handler does, the connection
// is closed and the loop is unaffected.
func (lp *loop) serve(conn net.Conn) {
	peer := conn.RemoteAddr()
	defer func() { _ = conn.Close() }()

	defer func() {
		if r := recover(); r != nil {
			lp.logger.ErrorMsg("Handler panic for %s: %v", peer, r)
		}
	}()

	if lp.opts.WrapConn != nil {
		conn = lp.opts.WrapConn(conn)
	}

	lp.logger.InfoMsg("New connection from %s", peer)
	if err := lp.handle(conn); err != nil {
		lp.logger.ErrorMsg("Handling %s: %s", peer, err)
	}
	lp.logger.VerboseMsg("Connection from %s done", peer)
}

func (lp *loop) observe(err error) {
	lp.logger.VerboseMsg("Accept loop continues after: %s", err)
	lp.report(err)
}

func (lp *loop) report(err error) {
	if lp.opts.OnAcceptError != nil {
		lp.opts.OnAcceptError(err)
	}
}

func (lp *loop) backoff(err error) error {
	if !lp.opts.SleepOnErrors || !transport.IsExhausted(err) {
		return nil
	}

	if lp.delay == 0 {
		lp.delay = minRetryDelay
	} else {
		lp.delay *= 2
	}
	if lp.delay > maxRetryDelay {
		lp.delay = maxRetryDelay
	}

	lp.logger.ErrorMsg("Accept: %s; retrying in %v", err, lp.delay)

	timer := time.NewTimer(lp.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-lp.ctx.Done():
		return ErrServerClosed
	}
}
