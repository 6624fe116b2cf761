//go:build cgo

// Package main builds the C shared library exposing the udpkit socket API.
//
//	go build -buildmode=c-shared -o libudpkit.so ./cmd/libudpkit
//
// Sockets are passed to C as opaque udpSocket handles. Strings returned by
// udpPlatform and udpPlatformErrorString are owned by the library and stay
// valid for the life of the process.
//
// Setting UDPKIT_LOG_LEVEL (debug, info, warn, error) enables logging to
// stderr from inside the library.
package main

/*
#include <stdint.h>

typedef uint64_t udpSocket;

typedef struct udpEndPoint {
	uint32_t address;
	uint16_t port;
} udpEndPoint;
*/
import "C"

import (
	"os"
	"sync"
	"unsafe"

	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/native"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

var (
	platformOnce sync.Once
	platformStr  *C.char

	errorStrings   = make(map[int32]*C.char)
	errorStringsMu sync.Mutex
)

func init() {
	if level := os.Getenv("UDPKIT_LOG_LEVEL"); level != "" && logging.IsValidLevel(level) {
		logger := logging.NewLogger(level, os.Getenv("UDPKIT_LOG_FORMAT"))
		native.Configure(socket.WithLogger(logger.With(logging.KeyComponent, "libudpkit")))
	}
}

func toEndpoint(ep C.udpEndPoint) endpoint.Endpoint {
	return endpoint.Endpoint{Address: uint32(ep.address), Port: uint16(ep.port)}
}

func fromEndpoint(ep endpoint.Endpoint) C.udpEndPoint {
	return C.udpEndPoint{address: C.uint32_t(ep.Address), port: C.uint16_t(ep.Port)}
}

// bufferLen converts a caller-supplied buffer size. Negative sizes are rejected.
func bufferLen(size int32) (int, bool) {
	if size < 0 {
		return 0, false
	}
	return int(size), true
}

// goBytes views C memory as a byte slice without copying. size must be
// non-negative.
func goBytes(buf *C.char, size int) []byte {
	if buf == nil || size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(buf)), size)
}

//export udpCreate
func udpCreate() C.udpSocket {
	return C.udpSocket(native.Create())
}

//export udpBind
func udpBind(s C.udpSocket, addr C.udpEndPoint) C.int32_t {
	return C.int32_t(native.Bind(native.Handle(s), toEndpoint(addr)))
}

//export udpSendTo
func udpSendTo(s C.udpSocket, buffer *C.char, size C.int32_t, addr C.udpEndPoint) C.int32_t {
	n, ok := bufferLen(int32(size))
	if !ok {
		return C.int32_t(native.StatusError)
	}
	return C.int32_t(native.SendTo(native.Handle(s), goBytes(buffer, n), toEndpoint(addr)))
}

//export udpRecvFrom
func udpRecvFrom(s C.udpSocket, buffer *C.char, size C.int32_t, addr *C.udpEndPoint) C.int32_t {
	l, ok := bufferLen(int32(size))
	if !ok {
		return C.int32_t(native.StatusError)
	}
	n, from := native.RecvFrom(native.Handle(s), goBytes(buffer, l))
	if addr != nil && n >= 0 {
		*addr = fromEndpoint(from)
	}
	return C.int32_t(n)
}

//export udpRecvPoll
func udpRecvPoll(s C.udpSocket, timeoutMs C.int32_t) C.int32_t {
	return C.int32_t(native.RecvPoll(native.Handle(s), int32(timeoutMs)))
}

//export udpLastError
func udpLastError(s C.udpSocket) C.int32_t {
	return C.int32_t(native.LastError(native.Handle(s)))
}

//export udpGetEndPoint
func udpGetEndPoint(s C.udpSocket, endPoint *C.udpEndPoint) C.int32_t {
	ep, st := native.GetEndPoint(native.Handle(s))
	if endPoint != nil {
		*endPoint = fromEndpoint(ep)
	}
	return C.int32_t(st)
}

//export udpClose
func udpClose(s C.udpSocket) C.int32_t {
	return C.int32_t(native.Close(native.Handle(s)))
}

//export udpPlatform
func udpPlatform() *C.char {
	platformOnce.Do(func() {
		platformStr = C.CString(native.Platform())
	})
	return platformStr
}

//export udpPlatformErrorString
func udpPlatformErrorString(code C.int) *C.char {
	errorStringsMu.Lock()
	defer errorStringsMu.Unlock()

	c, ok := errorStrings[int32(code)]
	if !ok {
		c = C.CString(native.PlatformErrorString(int32(code)))
		errorStrings[int32(code)] = c
	}
	return c
}

//export udpGetHighPrecisionTime
func udpGetHighPrecisionTime() C.uint32_t {
	return C.uint32_t(native.HighPrecisionTime())
}

func main() {}
