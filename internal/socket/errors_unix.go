//go:build unix

package socket

import (
	"errors"

	"golang.org/x/sys/unix"
)

// errnoCode extracts the platform error number from err.
func errnoCode(err error) int32 {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int32(errno)
	}
	return int32(unix.EINVAL)
}

func errnoFromCode(code int32) error {
	return unix.Errno(code)
}

// IsWouldBlock reports whether code means a non-blocking call had nothing to do.
func IsWouldBlock(code int32) bool {
	errno := unix.Errno(code)
	return errno == unix.EAGAIN || errno == unix.EWOULDBLOCK
}

// IsTransient reports whether code is a receive error commonly caused by an
// ICMP message for an earlier datagram. These are safe to ignore and retry.
func IsTransient(code int32) bool {
	switch unix.Errno(code) {
	case unix.ECONNREFUSED, unix.ECONNRESET, unix.EHOSTUNREACH, unix.ENETUNREACH:
		return true
	}
	return false
}

// IsTruncated is always false on unix, where oversized datagrams are
// truncated to the buffer without an error.
func IsTruncated(code int32) bool {
	return false
}

// PlatformErrorString returns the OS description of a platform error code.
func PlatformErrorString(code int32) string {
	if code == 0 {
		return "no error"
	}
	return unix.Errno(code).Error()
}
