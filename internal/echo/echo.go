// Package echo implements a UDP echo responder on top of the socket manager.
package echo

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/internal/socket"
)

// Defaults used when no option overrides them.
const (
	DefaultPollTimeout = 100 * time.Millisecond
	DefaultBufferSize  = 2048
)

// Stats counts responder activity. Safe to read while Serve runs.
type Stats struct {
	Received uint64
	Echoed   uint64
	Dropped  uint64
	Bytes    uint64
}

// Server returns every datagram it receives to its sender unchanged.
type Server struct {
	sock        *socket.Socket
	pollTimeout time.Duration
	bufSize     int
	logger      *slog.Logger
	metrics     *metrics.Metrics

	received atomic.Uint64
	echoed   atomic.Uint64
	dropped  atomic.Uint64
	bytes    atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithPollTimeout sets how long each readiness wait may block. It bounds how
// quickly Serve notices cancellation.
func WithPollTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.pollTimeout = d
		}
	}
}

// WithBufferSize sets the receive buffer size. Longer datagrams are truncated
// by the OS.
func WithBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.bufSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a responder on a bound socket. The caller keeps ownership of
// sock and closes it after Serve returns.
func New(sock *socket.Socket, opts ...Option) *Server {
	s := &Server{
		sock:        sock,
		pollTimeout: DefaultPollTimeout,
		bufSize:     DefaultBufferSize,
		logger:      logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serve answers datagrams until ctx is cancelled or the socket fails.
// It returns nil on cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if !s.sock.Valid() {
		return s.sock.StatusError("serve", socket.NotValid)
	}

	local, _ := s.sock.EndPoint()
	s.logger.Info("echo responder started", logging.KeyLocal, local.String())
	defer s.logger.Info("echo responder stopped",
		logging.KeyLocal, local.String(),
		logging.KeyCount, s.echoed.Load())

	buf := make([]byte, s.bufSize)
	timeoutMs := pollMillis(s.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		switch st := s.sock.PollReadable(timeoutMs); st {
		case socket.NoData:
			continue
		case socket.OK:
			if err := s.drain(buf); err != nil {
				return err
			}
		default:
			return s.sock.StatusError("poll", st)
		}
	}
}

// pollMillis rounds d up to whole milliseconds. A zero-millisecond wait
// returns at once, so truncating would spin.
func pollMillis(d time.Duration) int {
	return int((d + time.Millisecond - 1) / time.Millisecond)
}

// drain answers every queued datagram and returns once the socket would block.
func (s *Server) drain(buf []byte) error {
	for {
		n, from, st := s.sock.RecvFrom(buf)
		if st != socket.OK {
			code := s.sock.LastError()
			switch {
			case st == socket.Error && socket.IsWouldBlock(code):
				return nil
			case st == socket.Error && socket.IsTransient(code):
				s.logger.Debug("ignoring transient receive error", logging.KeyCode, code)
				continue
			case st == socket.Error && socket.IsTruncated(code):
				s.received.Add(1)
				s.dropped.Add(1)
				s.logger.Debug("dropped oversized datagram", logging.KeyCode, code)
				continue
			default:
				return s.sock.StatusError("recv", st)
			}
		}

		s.received.Add(1)

		if _, st := s.sock.SendTo(buf[:n], from); st != socket.OK {
			code := s.sock.LastError()
			if st == socket.Error && (socket.IsWouldBlock(code) || socket.IsTransient(code)) {
				s.dropped.Add(1)
				s.logger.Debug("echo dropped",
					logging.KeyRemote, from.String(),
					logging.KeyCode, code)
				continue
			}
			return s.sock.StatusError("send", st)
		}

		s.echoed.Add(1)
		s.bytes.Add(uint64(n))
		s.metrics.RecordEchoReply()
		s.logger.Debug("echoed datagram",
			logging.KeyRemote, from.String(),
			logging.KeyBytes, n)
	}
}

// Stats returns a snapshot of the responder counters.
func (s *Server) Stats() Stats {
	return Stats{
		Received: s.received.Load(),
		Echoed:   s.echoed.Load(),
		Dropped:  s.dropped.Load(),
		Bytes:    s.bytes.Load(),
	}
}
