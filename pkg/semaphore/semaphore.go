// Package semaphore limits how many connections are handled at once.
package semaphore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Acquire when no slot became free in time.
var ErrTimeout = errors.New("timeout acquiring connection slot")

// ConnSemaphore counts running connection handlers. A slot is taken by
// sending into the buffered channel and freed by receiving from it.
type ConnSemaphore struct {
	slots   chan struct{}
	timeout time.Duration
}

// New creates a semaphore with n slots. Acquire gives up after timeout.
func New(n int, timeout time.Duration) *ConnSemaphore {
	return &ConnSemaphore{slots: make(chan struct{}, n), timeout: timeout}
}

// Acquire waits for a free slot. It fails with ErrTimeout once the
// semaphore's timeout expires, or with the context's error if ctx is done
// first. A nil semaphore never blocks.
func (s *ConnSemaphore) Acquire(ctx context.Context) error {
	if s == nil {
		return nil
	}

	// fast path, also taken when ctx is already done but a slot is free
	select {
	case s.slots <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrTimeout, s.timeout)
	}
}

// TryAcquire takes a slot if one is free and reports whether it did.
func (s *ConnSemaphore) TryAcquire() bool {
	if s == nil {
		return true
	}

	select {
	case s.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire or TryAcquire.
func (s *ConnSemaphore) Release() {
	if s == nil {
		return
	}

	select {
	case <-s.slots:
	default:
		panic("semaphore: release without acquire")
	}
}

// InUse returns the number of taken slots.
func (s *ConnSemaphore) InUse() int {
	if s == nil {
		return 0
	}
	return len(s.slots)
}

// Cap returns the number of slots.
func (s *ConnSemaphore) Cap() int {
	if s == nil {
		return 0
	}
	return cap(s.slots)
}
