package tcp

import "net"

// MockTCPConn is one end of an in-memory connection with TCP addresses.
type MockTCPConn struct {
	net.Conn
	local  *net.TCPAddr
	remote *net.TCPAddr
}

// NewConnPair returns two connected MockTCPConns. The first one is the
// client end, the second the server end.
func NewConnPair(client, server *net.TCPAddr) (*MockTCPConn, *MockTCPConn) {
	c, s := net.Pipe()
	return &MockTCPConn{Conn: c, local: client, remote: server},
		&MockTCPConn{Conn: s, local: server, remote: client}
}

// LocalAddr returns the local network address.
func (c *MockTCPConn) LocalAddr() net.Addr {
	return c.local
}

// RemoteAddr returns the remote network address.
func (c *MockTCPConn) RemoteAddr() net.Addr {
	return c.remote
}

var _ net.Conn = (*MockTCPConn)(nil)
