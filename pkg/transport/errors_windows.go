//go:build windows

package transport

import (
	"errors"

	"golang.org/x/sys/windows"
)

// Winsock error codes.
const (
	wsaEINTR        = windows.Errno(10004)
	wsaEMFILE       = windows.Errno(10024)
	wsaEWOULDBLOCK  = windows.Errno(10035)
	wsaENETUNREACH  = windows.Errno(10051)
	wsaECONNABORTED = windows.Errno(10053)
	wsaECONNRESET   = windows.Errno(10054)
	wsaENOBUFS      = windows.Errno(10055)
	wsaETIMEDOUT    = windows.Errno(10060)
)

func isTransientErrno(err error) bool {
	for _, errno := range []windows.Errno{
		wsaEINTR,
		wsaEWOULDBLOCK,
		wsaENETUNREACH,
		wsaECONNABORTED,
		wsaECONNRESET,
		wsaETIMEDOUT,
	} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

func isExhaustedErrno(err error) bool {
	return errors.Is(err, wsaEMFILE) || errors.Is(err, wsaENOBUFS)
}
