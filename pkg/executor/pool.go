package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dominicbreuker/netserve/pkg/log"

	"github.com/panjf2000/ants/v2"
)

// Pool runs tasks on at most a fixed number of worker goroutines. Spawn
// never blocks: it fails with ErrCapacity when every worker is busy.
type Pool struct {
	pool   *ants.Pool
	logger *log.Logger
}

// NewPool returns a pool of size workers. A panicking task is logged and
// does not take the pool down.
func NewPool(workers int, logger *log.Logger) (*Pool, error) {
	p := &Pool{logger: logger}

	pool, err := ants.NewPool(workers,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(p.panicked),
		ants.WithLogger(antsLogger{logger}),
	)
	if err != nil {
		return nil, fmt.Errorf("ants.NewPool(%d): %w", workers, err)
	}
	p.pool = pool

	return p, nil
}

func (p *Pool) panicked(r any) {
	p.logger.ErrorMsg("Task panic: %v", r)
}

// Spawn hands task to an idle worker.
func (p *Pool) Spawn(task func()) error {
	err := p.pool.Submit(task)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		return fmt.Errorf("%w: %d of %d workers busy", ErrCapacity, p.pool.Running(), p.pool.Cap())
	case errors.Is(err, ants.ErrPoolClosed):
		return ErrClosed
	default:
		return fmt.Errorf("ants.Pool.Submit(): %w", err)
	}
}

// Workers returns the number of live worker goroutines. Idle workers are
// reaped after a second.
func (p *Pool) Workers() int {
	return p.pool.Running()
}

// Shutdown rejects new tasks and waits for running ones. Calling it again
// returns nil.
func (p *Pool) Shutdown(ctx context.Context) error {
	timeout := DrainLimit
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}

	done := make(chan error, 1)
	go func() { done <- p.pool.ReleaseTimeout(timeout) }()

	select {
	case err := <-done:
		switch {
		case err == nil, errors.Is(err, ants.ErrPoolClosed):
			return nil
		case errors.Is(err, ants.ErrTimeout):
			return fmt.Errorf("draining pool: %w", context.DeadlineExceeded)
		default:
			return fmt.Errorf("ants.Pool.ReleaseTimeout(): %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DrainLimit bounds Shutdown when its context has no deadline.
var DrainLimit = 10 * time.Second

// antsLogger routes the pool's own messages to the verbose log.
type antsLogger struct {
	*log.Logger
}

func (l antsLogger) Printf(format string, args ...any) {
	l.VerboseMsg(strings.TrimSuffix(format, "\n"), args...)
}
