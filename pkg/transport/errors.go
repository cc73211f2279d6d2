package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ErrListenerClosed is the cause of fatal errors returned by listeners
// that were closed by their owner.
var ErrListenerClosed = errors.New("listener closed")

// BindError is returned when a listener cannot be created. It is never
// retried at this layer.
type BindError struct {
	Network string
	Addr    string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind(%s, %s): %s", e.Network, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// AcceptError is returned by Listener.Next.
type AcceptError struct {
	Err error

	// Fatal is set if the listener is dead.
	Fatal bool

	// Exhausted is set for transient errors caused by the process or
	// system running out of resources (file descriptors, buffers, memory).
	// Retrying immediately is likely to fail again.
	Exhausted bool
}

func (e *AcceptError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("accept (fatal): %s", e.Err)
	}
	return fmt.Sprintf("accept: %s", e.Err)
}

func (e *AcceptError) Unwrap() error {
	return e.Err
}

// Temporary implements the legacy net.Error method.
func (e *AcceptError) Temporary() bool {
	return !e.Fatal
}

// Transient wraps err as a transient accept error.
func Transient(err error) error {
	return &AcceptError{Err: err}
}

// Fatal wraps err as a fatal accept error.
func Fatal(err error) error {
	return &AcceptError{Err: err, Fatal: true}
}

// IsFatal reports whether err ends a listener. Errors that are not
// AcceptErrors are considered fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}

	var ae *AcceptError
	if errors.As(err, &ae) {
		return ae.Fatal
	}
	return true
}

// IsExhausted reports whether err is a transient resource exhaustion error.
func IsExhausted(err error) bool {
	var ae *AcceptError
	return errors.As(err, &ae) && !ae.Fatal && ae.Exhausted
}

// Classify turns an error returned by an accept call into an *AcceptError.
// Errors already classified are returned unchanged. Unknown errors are
// fatal so that a broken listener never makes the caller spin.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ae *AcceptError
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, io.EOF),
		errors.Is(err, ErrListenerClosed):
		return Fatal(err)

	case isExhaustedErrno(err):
		return &AcceptError{Err: err, Exhausted: true}

	case isTransientErrno(err):
		return Transient(err)
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return Transient(err)
	}

	return Fatal(err)
}
