package tcp

import (
	"net"
	"sync"
	"sync/atomic"
)

// MockTCPListener is an in-memory net.Listener. Besides connections
// dialed through its MockTCPNetwork it can be told to fail accept calls.
type MockTCPListener struct {
	addr    *net.TCPAddr
	network *MockTCPNetwork

	connCh  chan *MockTCPConn
	errCh   chan error
	closeCh chan struct{}

	closeOnce sync.Once
	accepts   atomic.Int64
}

// Accept returns the next dialed connection or injected error.
func (l *MockTCPListener) Accept() (net.Conn, error) {
	l.accepts.Add(1)

	select {
	case <-l.closeCh:
		return nil, &net.OpError{Op: "accept", Net: "tcp", Addr: l.addr, Err: net.ErrClosed}
	default:
	}

	select {
	case conn := <-l.connCh:
		return conn, nil
	case err := <-l.errCh:
		return nil, &net.OpError{Op: "accept", Net: "tcp", Addr: l.addr, Err: err}
	case <-l.closeCh:
		return nil, &net.OpError{Op: "accept", Net: "tcp", Addr: l.addr, Err: net.ErrClosed}
	}
}

// FailAccept makes a pending or future Accept call return err.
func (l *MockTCPListener) FailAccept(err error) {
	l.errCh <- err
}

// Accepts returns how often Accept was called.
func (l *MockTCPListener) Accepts() int {
	return int(l.accepts.Load())
}

// Close closes the listener and frees its address.
func (l *MockTCPListener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.network.remove(l.addr.String())
	})
	return nil
}

// Addr returns the listener's network address.
func (l *MockTCPListener) Addr() net.Addr {
	return l.addr
}

var _ net.Listener = (*MockTCPListener)(nil)
