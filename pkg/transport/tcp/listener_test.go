//go:build !windows

package tcp

import (
	"errors"
	"net"
	"syscall"
	"testing"
	"time"

	mocks_tcp "dominicbreuker/netserve/mocks/tcp"
	"dominicbreuker/netserve/pkg/config"
	"dominicbreuker/netserve/pkg/transport"
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
		{"invalid address", "invalid:abc", true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l, err := Bind(tc.addr, nil, nil)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Bind(%q) error = %v, wantErr %v", tc.addr, err, tc.wantErr)
			}
			if tc.wantErr {
				var be *transport.BindError
				if !errors.As(err, &be) {
					t.Errorf("error is %T; want *transport.BindError", err)
				}
				return
			}
			defer l.Close()

			if port := l.Addr().(*net.TCPAddr).Port; port == 0 {
				t.Error("Addr() port = 0; want the port chosen by the OS")
			}
		})
	}
}

func TestBind_AddressInUse(t *testing.T) {
	t.Parallel()

	l, err := Bind("127.0.0.1:0", nil, nil)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	_, err = Bind(l.Addr().String(), nil, nil)
	if !errors.Is(err, syscall.EADDRINUSE) {
		t.Errorf("second Bind() error = %v; want EADDRINUSE", err)
	}
}

func TestListener_NextTunesConnection(t *testing.T) {
	t.Parallel()

	l, err := Bind("127.0.0.1:0", &Options{NoDelay: true, KeepAlive: 30 * time.Second}, nil)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	conn, err := l.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	defer conn.Close()

	if conn.RemoteAddr().String() != client.LocalAddr().String() {
		t.Errorf("RemoteAddr() = %s; want %s", conn.RemoteAddr(), client.LocalAddr())
	}
}

func TestListener_CloseIsFatal(t *testing.T) {
	t.Parallel()

	l, err := Bind("127.0.0.1:0", nil, nil)
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
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	select {
	case err := <-errCh:
		if !transport.IsFatal(err) {
			t.Errorf("Next() after Close() = %v; want fatal", err)
		}
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("Next() after Close() = %v; want net.ErrClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Next() did not return after Close()")
	}
}

func TestListener_MockNetwork(t *testing.T) {
	t.Parallel()

	mockNet := mocks_tcp.NewMockTCPNetwork()
	deps := &config.Dependencies{TCPListener: mockNet.ListenTCP}

	l, err := Bind("127.0.0.1:0", &Options{ReusePort: true}, deps)
	if err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	defer l.Close()

	ml, err := mockNet.WaitForListener(l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("WaitForListener() error = %v", err)
	}

	// transient errors do not kill the listener
	ml.FailAccept(syscall.ECONNABORTED)
	if _, err := l.Next(); err == nil || transport.IsFatal(err) {
		t.Fatalf("Next() = %v; want transient error", err)
	}

	ml.FailAccept(syscall.EMFILE)
	if _, err := l.Next(); !transport.IsExhausted(err) {
		t.Fatalf("Next() = %v; want exhaustion error", err)
	}

	go func() {
		c, err := mockNet.Dial(l.Addr().String())
		if err == nil {
			c.Close()
		}
	}()

	conn, err := l.Next()
	if err != nil {
		t.Fatalf("Next() after transient errors = %v", err)
	}
	conn.Close()

	ml.FailAccept(syscall.EBADF)
	if _, err := l.Next(); !transport.IsFatal(err) {
		t.Errorf("Next() = %v; want fatal error", err)
	}
}

func TestBind_ListenerFuncFails(t *testing.T) {
	t.Parallel()

	deps := &config.Dependencies{
		TCPListener: func(network string, laddr *net.TCPAddr) (net.Listener, error) {
			return nil, syscall.EACCES
		},
	}

	_, err := Bind("127.0.0.1:80", nil, deps)
	var be *transport.BindError
	if !errors.As(err, &be) || !errors.Is(err, syscall.EACCES) {
		t.Errorf("Bind() error = %v; want BindError wrapping EACCES", err)
	}
}
