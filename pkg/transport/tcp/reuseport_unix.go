//go:build !windows

package tcp

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenReusePort binds with SO_REUSEPORT so that several processes can
// share the port and let the kernel balance connections between them.
func listenReusePort(network string, laddr *net.TCPAddr) (net.Listener, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}

	return lc.Listen(context.Background(), network, laddr.String())
}
