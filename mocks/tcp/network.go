// Package tcp provides mock TCP network primitives for testing.
package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"
)

const firstEphemeralPort = 40000

// MockTCPNetwork simulates a TCP network for testing without real network connections.
// Listeners and dialers are connected through in-memory pipes.
type MockTCPNetwork struct {
	mu        sync.Mutex
	changed   *sync.Cond
	listeners map[string]*MockTCPListener
	nextPort  int
}

// NewMockTCPNetwork creates a new mock TCP network.
func NewMockTCPNetwork() *MockTCPNetwork {
	m := &MockTCPNetwork{
		listeners: make(map[string]*MockTCPListener),
		nextPort:  firstEphemeralPort,
	}
	m.changed = sync.NewCond(&m.mu)
	return m
}

// ListenTCP creates a mock listener. Port 0 is replaced by a fresh port.
// It has the signature of config.TCPListenerFunc.
func (m *MockTCPNetwork) ListenTCP(network string, laddr *net.TCPAddr) (net.Listener, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("unsupported network type: %s", network)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	addr := *laddr
	if addr.IP == nil {
		addr.IP = net.IPv4zero
	}
	if addr.Port == 0 {
		addr.Port = m.nextPort
		m.nextPort++
	}

	if _, exists := m.listeners[addr.String()]; exists {
		return nil, fmt.Errorf("address already in use: %s", addr.String())
	}

	l := &MockTCPListener{
		addr:    &addr,
		network: m,
		connCh:  make(chan *MockTCPConn),
		errCh:   make(chan error, 16),
		closeCh: make(chan struct{}),
	}
	m.listeners[addr.String()] = l
	m.changed.Broadcast()

	return l, nil
}

// Dial connects to the listener at addr. It blocks until the listener
// accepts the connection, like a full OS backlog would, or fails after a
// second.
func (m *MockTCPNetwork) Dial(addr string) (net.Conn, error) {
	m.mu.Lock()
	l, exists := m.listeners[addr]
	local := &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: m.nextPort}
	m.nextPort++
	m.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("connection refused: no listener on %s", addr)
	}

	client, server := NewConnPair(local, l.addr)

	select {
	case l.connCh <- server:
		return client, nil
	case <-l.closeCh:
		client.Close()
		server.Close()
		return nil, fmt.Errorf("connection refused: listener closed")
	case <-time.After(time.Second):
		client.Close()
		server.Close()
		return nil, fmt.Errorf("connection timeout")
	}
}

// WaitForListener waits until a listener exists on addr.
func (m *MockTCPNetwork) WaitForListener(addr string, timeout time.Duration) (*MockTCPListener, error) {
	deadline := time.Now().Add(timeout)
	wake := time.AfterFunc(timeout, func() {
		m.mu.Lock()
		m.changed.Broadcast()
		m.mu.Unlock()
	})
	defer wake.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		if l, exists := m.listeners[addr]; exists {
			return l, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("timeout waiting for listener on %s", addr)
		}
		m.changed.Wait()
	}
}

func (m *MockTCPNetwork) remove(addr string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.listeners, addr)
	m.changed.Broadcast()
}
