package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"dominicbreuker/netserve/pkg/executor"
	"dominicbreuker/netserve/pkg/transport/mux"

	"github.com/hashicorp/yamux"
)

// serve runs h on the server end of an in-memory connection.
func serve(h func(net.Conn) error) (net.Conn, <-chan error) {
	client, server := net.Pipe()
	done := make(chan error, 1)
	go func() {
		err := h(server)
		server.Close()
		done <- err
	}()
	return client, done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return")
		return nil
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	for _, name := range []string{NameEcho, NameDiscard, NameStdio, NameMuxEcho} {
		h, err := New(context.Background(), name, nil)
		if err != nil {
			t.Errorf("New(%q) error = %v", name, err)
		}
		if h == nil {
			t.Errorf("New(%q) returned nil handler", name)
		}
	}

	if _, err := New(context.Background(), "shell", nil); err == nil {
		t.Error("New(\"shell\") succeeded, want error")
	}
}

func TestEcho(t *testing.T) {
	t.Parallel()

	client, done := serve(Echo)

	go func() { _, _ = client.Write([]byte("hello")) }()
	buf := make([]byte, 5)
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(buf) != "hello" {
		t.Errorf("echo = %q, want %q", buf, "hello")
	}

	client.Close()
	if err := wait(t, done); err != nil {
		t.Errorf("Echo() = %v, want nil after peer hung up", err)
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	client, done := serve(Discard)

	if _, err := client.Write([]byte("ignored")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	client.Close()

	if err := wait(t, done); err != nil {
		t.Errorf("Discard() = %v, want nil", err)
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestStdio(t *testing.T) {
	t.Parallel()

	stdinR, stdinW := io.Pipe()
	defer stdinW.Close()
	var stdout syncBuffer

	h := Stdio(context.Background(), stdinR, &stdout, nil)
	client, done := serve(h)

	go func() { _, _ = stdinW.Write([]byte("from terminal")) }()
	buf := make([]byte, len("from terminal"))
	if _, err := io.ReadFull(client, buf); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(buf) != "from terminal" {
		t.Errorf("client read %q", buf)
	}

	if _, err := client.Write([]byte("from peer")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// a second connection is refused while the first is attached
	second, secondDone := serve(h)
	if err := wait(t, secondDone); !errors.Is(err, ErrStdioBusy) {
		t.Errorf("second Stdio() = %v, want ErrStdioBusy", err)
	}
	second.Close()

	client.Close()
	if err := wait(t, done); err != nil {
		t.Errorf("Stdio() = %v", err)
	}
	if !strings.Contains(stdout.String(), "from peer") {
		t.Errorf("stdout = %q, want it to contain %q", stdout.String(), "from peer")
	}
}

func TestMux(t *testing.T) {
	t.Parallel()

	h := Mux(context.Background(), Echo, executor.NewGoroutine(), nil)
	client, done := serve(h)

	session, err := yamux.Client(client, mux.Config())
	if err != nil {
		t.Fatalf("yamux.Client() error = %v", err)
	}

	for _, msg := range []string{"first stream", "second stream"} {
		stream, err := session.Open()
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := stream.Write([]byte(msg)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		buf := make([]byte, len(msg))
		if _, err := io.ReadFull(stream, buf); err != nil {
			t.Fatalf("ReadFull() error = %v", err)
		}
		if string(buf) != msg {
			t.Errorf("echo = %q, want %q", buf, msg)
		}
		stream.Close()
	}

	session.Close()
	if err := wait(t, done); err != nil {
		t.Errorf("Mux() = %v, want nil after the session ended", err)
	}
}

func TestMux_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	h := Mux(ctx, Echo, executor.NewGoroutine(), nil)
	client, done := serve(h)
	defer client.Close()

	if _, err := yamux.Client(client, mux.Config()); err != nil {
		t.Fatalf("yamux.Client() error = %v", err)
	}

	cancel()
	if err := wait(t, done); err != nil {
		t.Errorf("Mux() = %v, want nil after cancel", err)
	}
}
