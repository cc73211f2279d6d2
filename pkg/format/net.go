// Package format renders addresses for logs and CLI output.
package format

import (
	"net"
	"strconv"
)

// Addr joins host and port, bracketing IPv6 hosts.
func Addr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Transport renders addr as a transport specification such as
// "tcp://127.0.0.1:8080", the form accepted by the serve command.
func Transport(proto string, addr net.Addr) string {
	if addr == nil {
		return proto + "://"
	}
	return proto + "://" + addr.String()
}
