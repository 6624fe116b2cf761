//go:build windows

package socket

import (
	"fmt"
	"syscall"
	"unsafe"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"golang.org/x/sys/windows"
)

// socketFD represents a socket handle on Windows systems.
type socketFD windows.Handle

// invalidSocket represents an invalid socket value on Windows.
const invalidSocket socketFD = socketFD(windows.InvalidHandle)

// Windows socket constants
const (
	fionbio         = 0x8004667e        // FIONBIO for ioctlsocket
	sioUDPConnReset = 0x9800000c        // SIO_UDP_CONNRESET (IOC_IN | IOC_VENDOR | 12)
	socketError     = uintptr(^uint(0)) // SOCKET_ERROR (-1)
	winsockVersion  = 0x0202            // MAKEWORD(2, 2)
)

// Poll event flags for WSAPoll
const (
	pollErr    = 0x0001
	pollHup    = 0x0002
	pollRdNorm = 0x0100
)

// platformStartup initializes WinSock 2.2.
func platformStartup() error {
	var data windows.WSAData
	return windows.WSAStartup(winsockVersion, &data)
}

func platformCleanup() {
	_ = windows.WSACleanup()
}

// createSocket creates an IPv4 UDP socket.
func createSocket() (socketFD, error) {
	fd, err := windows.Socket(windows.AF_INET, windows.SOCK_DGRAM, windows.IPPROTO_UDP)
	if err != nil {
		return invalidSocket, err
	}
	return socketFD(fd), nil
}

// prepareSocket stops ICMP port unreachable from surfacing as WSAECONNRESET
// on later receives.
func prepareSocket(fd socketFD) error {
	var flag uint32 // FALSE
	var returned uint32
	return windows.WSAIoctl(
		windows.Handle(fd),
		sioUDPConnReset,
		(*byte)(unsafe.Pointer(&flag)),
		uint32(unsafe.Sizeof(flag)),
		nil,
		0,
		&returned,
		nil,
		0,
	)
}

// closeSocket closes the socket.
func closeSocket(fd socketFD) error {
	return windows.Closesocket(windows.Handle(fd))
}

// bindSocket binds the socket to the given endpoint.
func bindSocket(fd socketFD, ep endpoint.Endpoint) error {
	return windows.Bind(windows.Handle(fd), toSockaddr(ep))
}

func setRecvBuffer(fd socketFD, size uint32) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, int(size))
}

func setSendBuffer(fd socketFD, size uint32) error {
	return windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF, int(size))
}

// setNonBlocking sets the socket to non-blocking mode using ioctlsocket.
func setNonBlocking(fd socketFD) error {
	var mode uint32 = 1 // Non-blocking
	r1, _, e1 := syscall.SyscallN(
		procIoctlSocket.Addr(),
		uintptr(fd),
		uintptr(fionbio),
		uintptr(unsafe.Pointer(&mode)),
	)
	if r1 == socketError {
		if e1 != 0 {
			return e1
		}
		return syscall.EINVAL
	}
	return nil
}

// localEndpoint returns the address the socket is bound to.
func localEndpoint(fd socketFD) (endpoint.Endpoint, error) {
	sa, err := windows.Getsockname(windows.Handle(fd))
	if err != nil {
		return endpoint.Any, err
	}
	return fromSockaddr(sa)
}

// sendTo sends one datagram and returns the number of bytes sent.
func sendTo(fd socketFD, buf []byte, to endpoint.Endpoint) (int, error) {
	var wsaBuf windows.WSABuf
	wsaBuf.Len = uint32(len(buf))
	if len(buf) > 0 {
		wsaBuf.Buf = &buf[0]
	}

	var sent uint32
	err := windows.WSASendto(windows.Handle(fd), &wsaBuf, 1, &sent, 0, toSockaddr(to), nil, nil)
	if err != nil {
		return 0, err
	}
	return int(sent), nil
}

// recvFrom receives one datagram.
func recvFrom(fd socketFD, buf []byte) (int, endpoint.Endpoint, error) {
	n, sa, err := windows.Recvfrom(windows.Handle(fd), buf, 0)
	if err != nil {
		return 0, endpoint.Any, err
	}
	from, err := fromSockaddr(sa)
	if err != nil {
		return 0, endpoint.Any, err
	}
	return n, from, nil
}

// wsaPollFD is the Windows POLLFD structure for WSAPoll.
type wsaPollFD struct {
	fd      windows.Handle
	events  int16
	revents int16
}

// pollRead waits for the socket to become readable using WSAPoll.
func pollRead(fd socketFD, timeoutMs int) (bool, error) {
	pfd := wsaPollFD{
		fd:     windows.Handle(fd),
		events: pollRdNorm,
	}

	r1, _, e1 := syscall.SyscallN(
		procWSAPoll.Addr(),
		uintptr(unsafe.Pointer(&pfd)),
		1,
		uintptr(timeoutMs),
	)
	if r1 == socketError {
		if e1 != 0 {
			return false, e1
		}
		return false, syscall.EINVAL
	}
	if r1 == 0 {
		return false, nil
	}

	return pfd.revents&(pollRdNorm|pollErr|pollHup) != 0, nil
}

func toSockaddr(ep endpoint.Endpoint) *windows.SockaddrInet4 {
	return &windows.SockaddrInet4{Port: int(ep.Port), Addr: ep.Octets()}
}

func fromSockaddr(sa windows.Sockaddr) (endpoint.Endpoint, error) {
	sa4, ok := sa.(*windows.SockaddrInet4)
	if !ok {
		return endpoint.Any, fmt.Errorf("unexpected address family %T", sa)
	}
	a := sa4.Addr
	return endpoint.New(a[0], a[1], a[2], a[3], uint16(sa4.Port)), nil
}

var (
	modws2_32       = windows.NewLazySystemDLL("ws2_32.dll")
	procIoctlSocket = modws2_32.NewProc("ioctlsocket")
	procWSAPoll     = modws2_32.NewProc("WSAPoll")
)
