package executor

import (
	"context"
	"fmt"

	"dominicbreuker/netserve/pkg/semaphore"
)

// Limited caps the number of running tasks of another executor. Spawn
// fails with ErrCapacity instead of waiting when all slots are taken.
type Limited struct {
	next Executor
	sem  *semaphore.ConnSemaphore
}

// NewLimited allows at most max tasks of next to run at once.
func NewLimited(next Executor, max int) *Limited {
	return &Limited{next: next, sem: semaphore.New(max, 0)}
}

// Spawn hands task to the wrapped executor if a slot is free.
func (l *Limited) Spawn(task func()) error {
	if !l.sem.TryAcquire() {
		return fmt.Errorf("%w: %d/%d tasks running", ErrCapacity, l.sem.InUse(), l.sem.Cap())
	}

	err := l.next.Spawn(func() {
		defer l.sem.Release()
		task()
	})
	if err != nil {
		l.sem.Release()
		return err
	}

	return nil
}

// Running returns the number of tasks currently holding a slot.
func (l *Limited) Running() int {
	return l.sem.InUse()
}

// Shutdown shuts down the wrapped executor.
func (l *Limited) Shutdown(ctx context.Context) error {
	return Shutdown(ctx, l.next)
}
