package udp

import (
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/transport"

	kcp "github.com/xtaci/kcp-go/v5"
)

func TestBind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		addr    string
		wantErr bool
	}{
		{"valid address with port 0", "127.0.0.1:0", false},
		{"wildcard address", ":0", false},
		{"invalid address", "not-a-valid-address", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l, err := Bind(tc.addr, nil)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Bind(%q) error = %v, wantErr %v", tc.addr, err, tc.wantErr)
			}
			if tc.wantErr {
				var be *transport.BindError
				if !errors.As(err, &be) {
					t.Errorf("Bind(%q) error is %T; want *transport.BindError", tc.addr, err)
				}
				return
			}
			defer l.Close()

			if l.Addr().(*net.UDPAddr).Port == 0 {
				t.Error("Addr() did not resolve the ephemeral port")
			}
		})
	}
}

func TestBind_PacketListenerFails(t *testing.T) {
	t.Parallel()

	errInjected := errors.New("permission denied")
	deps := &config.Dependencies{
		PacketListener: func(network, address string) (net.PacketConn, error) {
			return nil, errInjected
		},
	}

	if _, err := Bind("127.0.0.1:0", deps); !errors.Is(err, errInjected) {
		t.Errorf("Bind() error = %v; want injected error", err)
	}
}

func TestListener_NextAcceptsSession(t *testing.T) {
	t.Parallel()

	l, err := Bind("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	client, err := kcp.DialWithOptions(l.Addr().String(), nil, 0, 0)
	if err != nil {
		t.Fatalf("kcp.DialWithOptions() error = %v", err)
	}
	defer client.Close()
	client.SetStreamMode(true)

	// the session is only announced once data arrives
	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.Next()
		ch <- result{conn, err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			t.Fatalf("Next() error = %v", r.err)
		}
		defer r.conn.Close()

		buf := make([]byte, 5)
		_ = r.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := io.ReadFull(r.conn, buf); err != nil {
			t.Fatalf("ReadFull() error = %v", err)
		}
		if string(buf) != "hello" {
			t.Errorf("read %q; want %q", buf, "hello")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Next() did not return a session")
	}
}

func TestListener_CloseIsFatal(t *testing.T) {
	t.Parallel()

	l, err := Bind("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := l.Next()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := l.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	_ = l.Close()

	select {
	case err := <-errCh:
		if !transport.IsFatal(err) {
			t.Errorf("Next() after Close() = %v; want fatal error", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next() did not return after Close()")
	}
}
