// Package executor provides the concurrency substrates that run connection
// handlers. The accept loop only ever calls Spawn and does not know
// whether work ends up on a fresh goroutine, a worker pool or the caller's
// own goroutine.
package executor

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrCapacity is returned by Spawn when the executor cannot take more
	// work right now. The caller decides whether that is fatal.
	ErrCapacity = errors.New("executor at capacity")

	// ErrClosed is returned by Spawn after the executor was shut down.
	ErrClosed = errors.New("executor closed")
)

// Executor runs tasks independently of the caller.
//
// Spawn must return as soon as the task is handed over. It must not wait
// for the task to start or finish.
type Executor interface {
	Spawn(task func()) error
}

// Shutdowner is implemented by executors that can wait for their running
// tasks to finish.
type Shutdowner interface {
	// Shutdown stops accepting tasks and waits until running tasks are
	// done or ctx expires.
	Shutdown(ctx context.Context) error
}

// Func adapts an ordinary function to the Executor interface.
type Func func(task func()) error

// Spawn calls f(task).
func (f Func) Spawn(task func()) error {
	return f(task)
}

// Goroutine runs every task on a new goroutine. The zero value is ready
// to use.
type Goroutine struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewGoroutine returns a goroutine-per-task executor.
func NewGoroutine() *Goroutine {
	return &Goroutine{}
}

// Spawn starts task on its own goroutine.
func (g *Goroutine) Spawn(task func()) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		return ErrClosed
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		task()
	}()

	return nil
}

// Shutdown rejects new tasks and waits for running ones.
func (g *Goroutine) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	return waitCtx(ctx, &g.wg)
}

// Inline runs tasks synchronously on the caller's goroutine. It breaks the
// non-blocking contract on purpose and is meant for tests and for
// transports that already run each connection on its own goroutine.
type Inline struct{}

// Spawn runs task and returns when it is done.
func (Inline) Spawn(task func()) error {
	task()
	return nil
}

// Shutdown waits for the running tasks of exec if it implements
// Shutdowner and returns nil otherwise.
func Shutdown(ctx context.Context, exec Executor) error {
	if s, ok := exec.(Shutdowner); ok {
		return s.Shutdown(ctx)
	}
	return nil
}

func waitCtx(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
