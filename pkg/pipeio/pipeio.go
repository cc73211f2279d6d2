// Package pipeio copies data between pairs of streams.
package pipeio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/muesli/cancelreader"
)

// Pipe copies data in both directions between a and b. It returns once
// either direction is done or ctx is cancelled, after closing both
// streams. Copy errors other than those caused by the closing are passed
// to logfunc, which may be nil.
func Pipe(ctx context.Context, a io.ReadWriteCloser, b io.ReadWriteCloser, logfunc func(error)) {
	done := make(chan struct{})
	var once sync.Once

	closeBoth := func() {
		once.Do(func() {
			_ = a.Close()
			_ = b.Close()
			close(done)
		})
	}

	pump := func(dst io.Writer, src io.Reader, dir string) {
		defer closeBoth()

		_, err := io.Copy(dst, src)
		if err != nil && !IsClosed(err) && logfunc != nil {
			logfunc(fmt.Errorf("io.Copy(%s): %w", dir, err))
		}
	}

	go pump(a, b, "b -> a")
	go pump(b, a, "a -> b")

	select {
	case <-done:
	case <-ctx.Done():
		closeBoth()
	}
}

// IsClosed reports whether err only says that a stream was closed.
func IsClosed(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, cancelreader.ErrCanceled)
}
