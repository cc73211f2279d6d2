//go:build !windows

package transport

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isTransientErrno reports accept failures caused by one connection, for
// example a peer resetting before accept completed.
func isTransientErrno(err error) bool {
	for _, errno := range []unix.Errno{
		unix.ECONNABORTED,
		unix.ECONNRESET,
		unix.EAGAIN,
		unix.EINTR,
		unix.EPROTO,
		unix.EPERM, // linux: rejected by firewall rules
		unix.ETIMEDOUT,
		unix.EHOSTUNREACH,
		unix.ENETUNREACH,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func isExhaustedErrno(err error) bool {
	for _, errno := range []unix.Errno{
		unix.EMFILE,
		unix.ENFILE,
		unix.ENOBUFS,
		unix.ENOMEM,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}
