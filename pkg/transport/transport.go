// Package transport defines the listener abstraction shared by all
// transports (tcp, ws, udp, mux) and the errors they produce.
//
// A Listener is pulled, not pushed: callers invoke Next in a loop and get
// back either one freshly accepted connection or an error. Every error
// returned by Next is an *AcceptError telling the caller whether the
// listener is still usable:
//   - Transient errors (connection aborted before accept completed, out of
//     file descriptors, ...) affect one accept call only. Call Next again.
//   - Fatal errors (listener closed, invalid socket, ...) mean the listener
//     will never yield a connection again.
//
// Listeners do not queue connections themselves. A connection is taken from
// the OS backlog (or the transport's equivalent) only when Next is called.
//
// Example usage:
//
//	l, err := tcp.Bind("127.0.0.1:0", nil, nil)
//	if err != nil {
//		return err // *transport.BindError
//	}
//	defer l.Close()
//
//	for {
//		conn, err := l.Next()
//		if err != nil {
//			if transport.IsFatal(err) {
//				return err
//			}
//			continue
//		}
//		go handle(conn)
//	}
package transport

import "net"

// Handler is a function that processes an incoming connection.
// It should handle the connection and return when done.
// The connection will be closed after the handler returns.
// The peer address is available as conn.RemoteAddr().
type Handler func(net.Conn) error

// Listener yields accepted connections.
type Listener interface {
	// Next blocks until a connection was accepted or an error occurred.
	// Errors are *AcceptError values.
	Next() (net.Conn, error)

	// Addr returns the resolved local address. It never fails.
	Addr() net.Addr

	// Close releases the socket. Blocked and future Next calls fail
	// with a fatal error. Closing more than once is a no-op.
	Close() error
}
