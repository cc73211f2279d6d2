package pipeio

import (
	"io"
	"os"
	"sync"

	"github.com/muesli/cancelreader"
)

// Stdio is a ReadWriteCloser over the process' standard streams. Reads
// from stdin are cancelled by Close where the platform supports it, so a
// connection that goes away does not leave a reader stuck on the terminal.
type Stdio struct {
	stdin            io.Reader
	cancellableStdin cancelreader.CancelReader

	stdout io.Writer

	closeOnce sync.Once
}

// NewStdio reads from in and writes to out. nil selects os.Stdin and
// os.Stdout.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}

	s := &Stdio{stdin: in, stdout: out}

	cr, err := cancelreader.NewReader(in)
	if err == nil {
		s.cancellableStdin = cr
	}
	return s
}

func (s *Stdio) Read(p []byte) (int, error) {
	if s.cancellableStdin != nil {
		return s.cancellableStdin.Read(p)
	}
	return s.stdin.Read(p)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.stdout.Write(p)
}

// Close cancels pending reads. It never closes the underlying streams.
func (s *Stdio) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.cancellableStdin != nil {
			s.cancellableStdin.Cancel()
			err = s.cancellableStdin.Close()
		}
	})
	return err
}
