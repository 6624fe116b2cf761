// Package socket implements a non-blocking IPv4 UDP socket over the native
// socket API of the host platform (BSD sockets or WinSock).
//
// Every operation reports a Status. Platform failures return Error and cache
// the platform error code on the socket, retrievable with LastError. A closed
// or never-opened socket returns NotValid without touching the OS.
package socket

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

// DefaultBufferSize is the default SO_SNDBUF and SO_RCVBUF size in bytes.
const DefaultBufferSize = 1 << 15

// Socket is one native datagram socket.
//
// A Socket is not safe for concurrent use; callers serialize access to a
// given socket. Distinct sockets are independent.
type Socket struct {
	fd             socketFD
	lastError      int32
	sendBufferSize uint32
	recvBufferSize uint32
	local          endpoint.Endpoint

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Socket at Open time.
type Option func(*Socket)

// WithBufferSizes overrides the send and receive buffer sizes applied at Bind.
// Zero keeps the default.
func WithBufferSizes(send, recv uint32) Option {
	return func(s *Socket) {
		if send > 0 {
			s.sendBufferSize = send
		}
		if recv > 0 {
			s.recvBufferSize = recv
		}
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Socket) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. A nil recorder disables metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Socket) {
		s.metrics = m
	}
}

// Open starts the platform network subsystem if needed and creates an
// unbound IPv4 UDP socket.
//
// Each successful Open must be paired with exactly one Close. A socket that
// is garbage collected while still open is closed and reported at warn level.
func Open(opts ...Option) (*Socket, error) {
	s := &Socket{
		fd:             invalidSocket,
		sendBufferSize: DefaultBufferSize,
		recvBufferSize: DefaultBufferSize,
		logger:         logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := acquire(); err != nil {
		s.logger.Error("network subsystem startup failed", logging.KeyError, err)
		return nil, fmt.Errorf("%w: %w", ErrStartup, err)
	}

	fd, err := newSocketFunc()
	if err != nil {
		release()
		s.metrics.RecordError("open")
		s.logger.Error("socket create failed", logging.KeyError, err)
		return nil, &OpError{Op: "open", Status: Error, Code: errnoCode(err)}
	}
	s.fd = fd

	if err := prepareSocket(fd); err != nil {
		s.logger.Debug("socket prepare failed", logging.KeyError, err)
	}

	runtime.SetFinalizer(s, (*Socket).finalize)
	s.metrics.RecordOpen()
	s.logger.Debug("socket opened")
	return s, nil
}

// Valid reports whether the socket holds an open native descriptor.
func (s *Socket) Valid() bool {
	return s != nil && s.fd != invalidSocket
}

// Bind binds the socket to ep, applies the configured buffer sizes, switches
// the socket to non-blocking mode and records the resolved local endpoint.
// Binding to endpoint.Any selects any interface and an ephemeral port.
func (s *Socket) Bind(ep endpoint.Endpoint) Status {
	if !s.Valid() {
		return NotValid
	}

	if err := bindSocket(s.fd, ep); err != nil {
		return s.fail("bind", err)
	}
	if err := setRecvBuffer(s.fd, s.recvBufferSize); err != nil {
		return s.fail("setsockopt", err)
	}
	if err := setSendBuffer(s.fd, s.sendBufferSize); err != nil {
		return s.fail("setsockopt", err)
	}
	if err := setNonBlocking(s.fd); err != nil {
		return s.fail("nonblock", err)
	}

	// Port 0 is replaced by the OS, so ask for what we actually got.
	local, err := localEndpoint(s.fd)
	if err != nil {
		return s.fail("getsockname", err)
	}
	s.local = local

	s.logger.Debug("socket bound", logging.KeyLocal, local.String())
	return OK
}

// SendTo sends buf as a single datagram to dst and returns the number of
// bytes the OS accepted. There is no retry on partial or failed sends.
func (s *Socket) SendTo(buf []byte, dst endpoint.Endpoint) (int, Status) {
	if !s.Valid() {
		return 0, NotValid
	}

	n, err := sendTo(s.fd, buf, dst)
	if err != nil {
		return 0, s.fail("send", err)
	}

	s.metrics.RecordSend(n)
	return n, OK
}

// RecvFrom reads a single datagram into buf and returns its length and the
// sender. A zero-length datagram returns 0 and OK.
//
// When nothing is queued the call returns Error like any other failure;
// IsWouldBlock(LastError()) tells the two apart. Use PollReadable first.
func (s *Socket) RecvFrom(buf []byte) (int, endpoint.Endpoint, Status) {
	if !s.Valid() {
		return 0, endpoint.Any, NotValid
	}

	n, from, err := recvFrom(s.fd, buf)
	if err != nil {
		s.lastError = errnoCode(err)
		if !IsWouldBlock(s.lastError) {
			s.metrics.RecordError("recv")
		}
		return 0, endpoint.Any, Error
	}

	s.metrics.RecordRecv(n)
	return n, from, OK
}

// PollReadable waits up to timeoutMs milliseconds for a datagram to be
// readable. It returns OK when the socket is readable, NoData when the
// timeout elapsed, and Error on failure. A timeout of 0 (or less) checks
// once without waiting.
func (s *Socket) PollReadable(timeoutMs int) Status {
	if !s.Valid() {
		return NotValid
	}
	if timeoutMs < 0 {
		timeoutMs = 0
	}

	ready, err := pollRead(s.fd, timeoutMs)
	if err != nil {
		s.metrics.RecordPoll("error")
		return s.fail("poll", err)
	}
	if !ready {
		s.metrics.RecordPoll("timeout")
		return NoData
	}

	s.metrics.RecordPoll("ready")
	return OK
}

// LastError returns the most recently recorded platform error code.
func (s *Socket) LastError() int32 {
	if s == nil {
		return 0
	}
	return s.lastError
}

// Err returns the last platform error as an error value, or nil.
func (s *Socket) Err() error {
	code := s.LastError()
	if code == 0 {
		return nil
	}
	return errnoFromCode(code)
}

// StatusError converts the status of an operation into an error, or nil for
// OK and NoData.
func (s *Socket) StatusError(op string, st Status) error {
	switch st {
	case OK, NoData:
		return nil
	case NotValid:
		return &OpError{Op: op, Status: st}
	default:
		return &OpError{Op: op, Status: st, Code: s.LastError()}
	}
}

// EndPoint returns the resolved local endpoint. An invalid socket returns
// endpoint.Any and NotValid.
func (s *Socket) EndPoint() (endpoint.Endpoint, Status) {
	if !s.Valid() {
		return endpoint.Any, NotValid
	}
	return s.local, OK
}

// BufferSizes returns the configured send and receive buffer sizes.
func (s *Socket) BufferSizes() (send, recv uint32) {
	if s == nil {
		return 0, 0
	}
	return s.sendBufferSize, s.recvBufferSize
}

// Close closes the native descriptor and releases the subsystem reference.
// The reference is released even when the close call fails; the socket is
// invalid afterwards and a second Close returns NotValid.
//
// It returns OK, NotValid, or Error with the platform code in LastError.
func (s *Socket) Close() Status {
	if !s.Valid() {
		return NotValid
	}
	runtime.SetFinalizer(s, nil)

	err := s.release()
	if err != nil {
		return s.fail("close", err)
	}

	s.logger.Debug("socket closed", logging.KeyLocal, s.local.String())
	return OK
}

func (s *Socket) release() error {
	err := closeSocket(s.fd)
	s.fd = invalidSocket
	release()
	s.metrics.RecordClose()
	return err
}

func (s *Socket) finalize() {
	if s.fd == invalidSocket {
		return
	}
	s.logger.Warn("socket garbage collected without Close", logging.KeyLocal, s.local.String())
	_ = s.release()
}

// fail records err as the socket's last error and returns Error.
func (s *Socket) fail(op string, err error) Status {
	s.lastError = errnoCode(err)
	s.metrics.RecordError(op)
	s.logger.Debug("socket operation failed",
		"op", op,
		logging.KeyCode, s.lastError,
		logging.KeyError, err)
	return Error
}
