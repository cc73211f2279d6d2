//go:build windows

package tcp

import (
	"fmt"
	"net"

	"golang.org/x/sys/windows"
)

// listenReusePort fails on Windows, which has no SO_REUSEPORT.
func listenReusePort(network string, laddr *net.TCPAddr) (net.Listener, error) {
	return nil, fmt.Errorf("SO_REUSEPORT: %w", windows.ERROR_NOT_SUPPORTED)
}
