//go:build windows

package socket

import (
	"errors"

	"golang.org/x/sys/windows"
)

// WinSock error codes that x/sys/windows does not name.
const (
	wsaEInvalid     = 10022
	wsaEWouldBlock  = 10035
	wsaENetUnreach  = 10051
	wsaENetReset    = 10052
	wsaEConnReset   = 10054
	wsaEConnRefused = 10061
	wsaEHostUnreach = 10065
	wsaEMsgSize     = 10040
)

// errnoCode extracts the WinSock error code from err.
func errnoCode(err error) int32 {
	var errno windows.Errno
	if errors.As(err, &errno) {
		return int32(errno)
	}
	return wsaEInvalid
}

func errnoFromCode(code int32) error {
	return windows.Errno(code)
}

// IsWouldBlock reports whether code means a non-blocking call had nothing to do.
func IsWouldBlock(code int32) bool {
	return code == wsaEWouldBlock
}

// IsTransient reports whether code is a receive error commonly caused by an
// ICMP message for an earlier datagram. These are safe to ignore and retry.
func IsTransient(code int32) bool {
	switch code {
	case wsaEConnReset, wsaEConnRefused, wsaEHostUnreach, wsaENetUnreach, wsaENetReset:
		return true
	}
	return false
}

// IsTruncated reports whether code means a datagram larger than the receive
// buffer was discarded. The socket remains usable.
func IsTruncated(code int32) bool {
	return code == wsaEMsgSize
}

// PlatformErrorString returns the OS description of a platform error code.
func PlatformErrorString(code int32) string {
	if code == 0 {
		return "no error"
	}
	return windows.Errno(code).Error()
}
