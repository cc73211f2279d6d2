// Package mocks provides in-memory listeners, connections and executors
// for testing the accept loop without real sockets.
package mocks

import (
	"net"
	"sync"
	"sync/atomic"

	mocks_tcp "dominicbreuker/netserve/mocks/tcp"
	"dominicbreuker/netserve/pkg/transport"
)

type result struct {
	conn net.Conn
	err  error
}

// MockListener is a scripted transport.Listener. Each Next call returns
// the next pushed connection or error, in push order.
type MockListener struct {
	addr    net.Addr
	results chan result
	closeCh chan struct{}

	closeOnce sync.Once
	nextCalls atomic.Int64
}

var _ transport.Listener = (*MockListener)(nil)

// NewMockListener creates a listener reporting addr as its address.
func NewMockListener(addr string) *MockListener {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		panic(err)
	}

	return &MockListener{
		addr:    tcpAddr,
		results: make(chan result, 64),
		closeCh: make(chan struct{}),
	}
}

// PushConn queues a server-side connection from peer and returns the
// client end.
func (l *MockListener) PushConn(peer string) net.Conn {
	peerAddr, err := net.ResolveTCPAddr("tcp", peer)
	if err != nil {
		panic(err)
	}

	client, server := mocks_tcp.NewConnPair(peerAddr, l.addr.(*net.TCPAddr))
	l.results <- result{conn: server}
	return client
}

// PushErr queues an error. It is returned unchanged by Next, so push
// classified errors (transport.Transient, transport.Fatal) or raw ones.
func (l *MockListener) PushErr(err error) {
	l.results <- result{err: err}
}

// Next returns the next pushed item, blocking until there is one. After
// Close it returns a fatal error.
func (l *MockListener) Next() (net.Conn, error) {
	l.nextCalls.Add(1)

	select {
	case <-l.closeCh:
		return nil, transport.Fatal(transport.ErrListenerClosed)
	default:
	}

	select {
	case r := <-l.results:
		if r.err != nil {
			return nil, transport.Classify(r.err)
		}
		return r.conn, nil
	case <-l.closeCh:
		return nil, transport.Fatal(transport.ErrListenerClosed)
	}
}

// NextCalls returns how often Next was called.
func (l *MockListener) NextCalls() int {
	return int(l.nextCalls.Load())
}

// Addr returns the configured address.
func (l *MockListener) Addr() net.Addr {
	return l.addr
}

// Close makes pending and future Next calls fail.
func (l *MockListener) Close() error {
	l.closeOnce.Do(func() { close(l.closeCh) })
	return nil
}
