package log

import (
	"fmt"
	"net"
	"os"
	"sync"
)

// LoggedConn mirrors all bytes read from and written to a connection into
// a traffic log file shared by all connections of a server.
type LoggedConn struct {
	net.Conn

	file *os.File
	mu   *sync.Mutex
}

// TrafficLog is an append-only file receiving the traffic of many
// concurrently handled connections.
type TrafficLog struct {
	file *os.File
	mu   sync.Mutex
}

// OpenTrafficLog creates or appends to the file at path.
func OpenTrafficLog(path string) (*TrafficLog, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("os.OpenFile(%s): %w", path, err)
	}

	return &TrafficLog{file: f}, nil
}

// Wrap returns conn with its traffic mirrored into the log.
func (t *TrafficLog) Wrap(conn net.Conn) net.Conn {
	return &LoggedConn{Conn: conn, file: t.file, mu: &t.mu}
}

// Close closes the underlying file.
func (t *TrafficLog) Close() error {
	return t.file.Close()
}

// Read reads from the connection. The connection's own error wins over a
// failure to log the bytes.
func (lc *LoggedConn) Read(b []byte) (int, error) {
	n, err := lc.Conn.Read(b)
	if n > 0 {
		if werr := lc.record(b[:n]); werr != nil && err == nil {
			return n, fmt.Errorf("logging read: %w", werr)
		}
	}
	return n, err
}

// Write writes to the connection, with the same error precedence as Read.
func (lc *LoggedConn) Write(b []byte) (int, error) {
	n, err := lc.Conn.Write(b)
	if n > 0 {
		if werr := lc.record(b[:n]); werr != nil && err == nil {
			return n, fmt.Errorf("logging write: %w", werr)
		}
	}
	return n, err
}

func (lc *LoggedConn) record(b []byte) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	_, err := lc.file.Write(b)
	return err
}
