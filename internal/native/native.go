// Package native is the flat, handle-based surface of the socket manager.
//
// Every function takes and returns plain integers so it can be exported over
// cgo unchanged. Sockets are referenced by opaque non-zero handles issued from
// a process-wide registry; an unknown or closed handle behaves like an
// invalid socket and yields NotValid.
package native

import (
	"sync"

	"github.com/hervehildenbrand/udpkit/internal/clock"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

// Handle identifies a socket created by Create. Zero is never issued.
type Handle uint64

// Status values returned across the flat surface.
const (
	StatusOK       = int32(socket.OK)
	StatusError    = int32(socket.Error)
	StatusNotValid = int32(socket.NotValid)
	StatusNoData   = int32(socket.NoData)
)

type entry struct {
	mu sync.Mutex
	s  *socket.Socket
}

type handleRegistry struct {
	mu      sync.Mutex
	next    Handle
	entries map[Handle]*entry
	options []socket.Option
}

var registry = &handleRegistry{
	entries: make(map[Handle]*entry),
}

// Configure sets the options applied to every socket created afterwards.
func Configure(opts ...socket.Option) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.options = opts
}

func (r *handleRegistry) add(s *socket.Socket) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	h := r.next
	r.entries[h] = &entry{s: s}
	return h
}

func (r *handleRegistry) remove(h Handle) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[h]
	delete(r.entries, h)
	return e
}

// with runs fn on the socket behind h while holding its entry lock. Unknown
// handles run fn with a nil socket, which every socket method treats as
// invalid.
func (r *handleRegistry) with(h Handle, fn func(s *socket.Socket)) {
	r.mu.Lock()
	e := r.entries[h]
	r.mu.Unlock()

	if e == nil {
		fn(nil)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.s)
}

func (r *handleRegistry) socketOptions() []socket.Option {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options
}

func (r *handleRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Create opens a new unbound socket and returns its handle, or 0 when the
// network subsystem or the socket could not be created.
func Create() Handle {
	s, err := socket.Open(registry.socketOptions()...)
	if err != nil {
		return 0
	}
	return registry.add(s)
}

// Bind binds the socket to ep.
func Bind(h Handle, ep endpoint.Endpoint) int32 {
	var st socket.Status
	registry.with(h, func(s *socket.Socket) {
		st = s.Bind(ep)
	})
	return int32(st)
}

// SendTo sends buf to dst and returns the number of bytes sent, or a
// negative status.
func SendTo(h Handle, buf []byte, dst endpoint.Endpoint) int32 {
	var (
		n  int
		st socket.Status
	)
	registry.with(h, func(s *socket.Socket) {
		n, st = s.SendTo(buf, dst)
	})
	if st != socket.OK {
		return int32(st)
	}
	return int32(n)
}

// RecvFrom receives one datagram into buf and returns its length and sender,
// or a negative status and the zero endpoint.
func RecvFrom(h Handle, buf []byte) (int32, endpoint.Endpoint) {
	var (
		n    int
		from endpoint.Endpoint
		st   socket.Status
	)
	registry.with(h, func(s *socket.Socket) {
		n, from, st = s.RecvFrom(buf)
	})
	if st != socket.OK {
		return int32(st), endpoint.Any
	}
	return int32(n), from
}

// RecvPoll waits up to timeoutMs for the socket to become readable.
func RecvPoll(h Handle, timeoutMs int32) int32 {
	var st socket.Status
	registry.with(h, func(s *socket.Socket) {
		st = s.PollReadable(int(timeoutMs))
	})
	return int32(st)
}

// LastError returns the last platform error code recorded on the socket, or
// 0 for an unknown handle.
func LastError(h Handle) int32 {
	var code int32
	registry.with(h, func(s *socket.Socket) {
		code = s.LastError()
	})
	return code
}

// GetEndPoint returns the resolved local endpoint of the socket.
func GetEndPoint(h Handle) (endpoint.Endpoint, int32) {
	var (
		ep endpoint.Endpoint
		st socket.Status
	)
	registry.with(h, func(s *socket.Socket) {
		ep, st = s.EndPoint()
	})
	return ep, int32(st)
}

// Close closes the socket and retires its handle. It returns StatusOK,
// StatusNotValid for an unknown handle, or the platform error code of a
// failed close. The handle is retired either way.
func Close(h Handle) int32 {
	e := registry.remove(h)
	if e == nil {
		return StatusNotValid
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch st := e.s.Close(); st {
	case socket.Error:
		return e.s.LastError()
	default:
		return int32(st)
	}
}

// Platform returns the short platform name.
func Platform() string {
	return socket.PlatformName()
}

// PlatformErrorString returns the OS description of a platform error code.
func PlatformErrorString(code int32) string {
	return socket.PlatformErrorString(code)
}

// HighPrecisionTime returns monotonic milliseconds since process start.
func HighPrecisionTime() uint32 {
	return clock.Milliseconds()
}
