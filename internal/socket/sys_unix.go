//go:build unix

package socket

import (
	"errors"
	"fmt"
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"golang.org/x/sys/unix"
)

// socketFD represents a socket file descriptor on Unix systems.
type socketFD int

// invalidSocket represents an invalid socket value.
const invalidSocket socketFD = -1

// platformStartup is a no-op: BSD sockets need no process-wide initialization.
func platformStartup() error { return nil }

func platformCleanup() {}

// createSocket creates an IPv4 UDP socket.
func createSocket() (socketFD, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return invalidSocket, err
	}
	unix.CloseOnExec(fd)
	return socketFD(fd), nil
}

func prepareSocket(fd socketFD) error { return nil }

// closeSocket closes the socket.
func closeSocket(fd socketFD) error {
	return unix.Close(int(fd))
}

// bindSocket binds the socket to the given endpoint.
func bindSocket(fd socketFD, ep endpoint.Endpoint) error {
	return unix.Bind(int(fd), toSockaddr(ep))
}

func setRecvBuffer(fd socketFD, size uint32) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, int(size))
}

func setSendBuffer(fd socketFD, size uint32) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, int(size))
}

// setNonBlocking sets the socket to non-blocking mode.
func setNonBlocking(fd socketFD) error {
	return unix.SetNonblock(int(fd), true)
}

// localEndpoint returns the address the socket is bound to.
func localEndpoint(fd socketFD) (endpoint.Endpoint, error) {
	sa, err := unix.Getsockname(int(fd))
	if err != nil {
		return endpoint.Any, err
	}
	return fromSockaddr(sa)
}

// sendTo sends one datagram. SendmsgN reports the byte count, Sendto does not.
func sendTo(fd socketFD, buf []byte, to endpoint.Endpoint) (int, error) {
	return unix.SendmsgN(int(fd), buf, nil, toSockaddr(to), 0)
}

// recvFrom receives one datagram.
func recvFrom(fd socketFD, buf []byte) (int, endpoint.Endpoint, error) {
	n, sa, err := unix.Recvfrom(int(fd), buf, 0)
	if err != nil {
		return 0, endpoint.Any, err
	}
	from, err := fromSockaddr(sa)
	if err != nil {
		return 0, endpoint.Any, err
	}
	return n, from, nil
}

// pollRead waits for the socket to become readable. Error and hangup
// conditions count as readable so the following receive reports them.
// EINTR resumes the wait with whatever time is left.
func pollRead(fd socketFD, timeoutMs int) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	wait := timeoutMs

	for {
		n, err := unix.Poll(fds, wait)
		if errors.Is(err, unix.EINTR) {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return false, nil
			}
			wait = int((remaining + time.Millisecond - 1) / time.Millisecond)
			continue
		}
		if err != nil {
			return false, err
		}
		if n <= 0 {
			return false, nil
		}
		return fds[0].Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0, nil
	}
}

func toSockaddr(ep endpoint.Endpoint) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: int(ep.Port), Addr: ep.Octets()}
}

func fromSockaddr(sa unix.Sockaddr) (endpoint.Endpoint, error) {
	sa4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return endpoint.Any, fmt.Errorf("unexpected address family %T: %w", sa, unix.EAFNOSUPPORT)
	}
	a := sa4.Addr
	return endpoint.New(a[0], a[1], a[2], a[3], uint16(sa4.Port)), nil
}
