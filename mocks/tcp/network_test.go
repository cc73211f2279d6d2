package tcp

import (
	"errors"
	"io"
	"net"
	"syscall"
	"testing"
	"time"
)

func TestMockTCPNetwork_ListenDialAccept(t *testing.T) {
	t.Parallel()

	m := NewMockTCPNetwork()
	nl, err := m.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}
	defer nl.Close()

	addr := nl.Addr().String()
	if nl.Addr().(*net.TCPAddr).Port == 0 {
		t.Fatal("port 0 was not replaced")
	}

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := nl.Accept()
		accepted <- c
	}()

	client, err := m.Dial(addr)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer client.Close()

	server := <-accepted
	defer server.Close()

	go func() { _, _ = client.Write([]byte("hi")) }()
	buf := make([]byte, 2)
	if _, err := io.ReadFull(server, buf); err != nil || string(buf) != "hi" {
		t.Errorf("server read %q, %v", buf, err)
	}
	if server.RemoteAddr().String() != client.LocalAddr().String() {
		t.Errorf("server sees peer %s; client is %s", server.RemoteAddr(), client.LocalAddr())
	}
}

func TestMockTCPListener_FailAcceptAndClose(t *testing.T) {
	t.Parallel()

	m := NewMockTCPNetwork()
	nl, _ := m.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 80})
	l := nl.(*MockTCPListener)

	l.FailAccept(syscall.ECONNABORTED)
	if _, err := l.Accept(); !errors.Is(err, syscall.ECONNABORTED) {
		t.Errorf("Accept() = %v; want injected error", err)
	}

	l.Close()
	l.Close()
	if _, err := l.Accept(); !errors.Is(err, net.ErrClosed) {
		t.Errorf("Accept() after Close() = %v; want net.ErrClosed", err)
	}
	if l.Accepts() != 2 {
		t.Errorf("Accepts() = %d; want 2", l.Accepts())
	}

	if _, err := m.Dial("127.0.0.1:80"); err == nil {
		t.Error("Dial() to closed listener succeeded")
	}
}

func TestMockTCPNetwork_AddressInUse(t *testing.T) {
	t.Parallel()

	m := NewMockTCPNetwork()
	addr := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 8080}
	if _, err := m.ListenTCP("tcp", addr); err != nil {
		t.Fatalf("ListenTCP() error = %v", err)
	}
	if _, err := m.ListenTCP("tcp", addr); err == nil {
		t.Error("second ListenTCP() on same address succeeded")
	}
}

func TestMockTCPNetwork_WaitForListener(t *testing.T) {
	t.Parallel()

	m := NewMockTCPNetwork()
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = m.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000})
	}()

	if _, err := m.WaitForListener("127.0.0.1:9000", time.Second); err != nil {
		t.Errorf("WaitForListener() error = %v", err)
	}
	if _, err := m.WaitForListener("127.0.0.1:9001", 30*time.Millisecond); err == nil {
		t.Error("WaitForListener() for missing listener succeeded")
	}
}
