// Package probe measures UDP round trips against an echo responder.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eapache/queue"
	"golang.org/x/time/rate"

	"github.com/hervehildenbrand/udpkit/internal/clock"
	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// maxPollWait caps each readiness wait so cancellation is noticed promptly.
const maxPollWait = 100 * time.Millisecond

// Config controls a probing run.
type Config struct {
	Target   endpoint.Endpoint
	Count    int           // probes to send, 0 sends until ctx is cancelled
	Interval time.Duration // spacing between probes
	Timeout  time.Duration // how long to wait for each reply
	Size     int           // datagram size, at least HeaderSize
	Rate     float64       // optional probes-per-second ceiling, 0 disables
}

// DefaultConfig returns the configuration for probing target.
func DefaultConfig(target endpoint.Endpoint) Config {
	return Config{
		Target:   target,
		Count:    10,
		Interval: time.Second,
		Timeout:  2 * time.Second,
		Size:     64,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	var errs []error
	if c.Target.IsAny() {
		errs = append(errs, errors.New("target is required"))
	}
	if c.Count < 0 {
		errs = append(errs, errors.New("count must not be negative"))
	}
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("timeout must be positive"))
	}
	if c.Size < HeaderSize {
		errs = append(errs, fmt.Errorf("size must be at least %d", HeaderSize))
	}
	if c.Rate < 0 {
		errs = append(errs, errors.New("rate must not be negative"))
	}
	return errors.Join(errs...)
}

// Callback is called for each probe outcome as it becomes known.
type Callback func(result.Probe)

type inflight struct {
	seq      uint32
	sentMs   uint32
	sentAt   time.Time
	deadline time.Time
}

// Prober sends sequenced probes from one socket and matches the echoes.
type Prober struct {
	sock    *socket.Socket
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	limiter *rate.Limiter

	// expiry holds probes in send order; deadlines are monotonic in it.
	expiry  *queue.Queue
	pending map[uint32]*inflight
	nextSeq uint32
	sent    int
}

// Option configures a Prober.
type Option func(*Prober)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Prober) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Prober) {
		p.metrics = m
	}
}

// New creates a prober on a bound socket. The caller keeps ownership of sock.
func New(sock *socket.Socket, cfg Config, opts ...Option) (*Prober, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid probe config: %w", err)
	}

	p := &Prober{
		sock:    sock,
		cfg:     cfg,
		logger:  logging.NopLogger(),
		expiry:  queue.New(),
		pending: make(map[uint32]*inflight),
		nextSeq: 1,
	}
	if cfg.Rate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run probes the target until Count probes have completed or ctx is
// cancelled. Every outcome is passed to cb (which may be nil) and collected
// into the returned session. On cancellation the partial session is returned
// together with ctx.Err().
func (p *Prober) Run(ctx context.Context, cb Callback) (*result.Session, error) {
	sess := result.NewSession(p.cfg.Target)
	sess.Size = p.cfg.Size
	sess.Platform = socket.PlatformName()
	sess.StartTime = time.Now()
	defer func() { sess.EndTime = time.Now() }()

	local, st := p.sock.EndPoint()
	if st != socket.OK {
		return sess, p.sock.StatusError("probe", st)
	}
	sess.Local = local

	emit := func(pr result.Probe) {
		sess.Add(pr)
		if cb != nil {
			cb(pr)
		}
	}

	sendBuf := make([]byte, p.cfg.Size)
	recvBuf := make([]byte, p.cfg.Size+64)
	nextSend := time.Now()

	p.logger.Debug("probe run started",
		logging.KeyLocal, local.String(),
		logging.KeyRemote, p.cfg.Target.String())

	for {
		if err := ctx.Err(); err != nil {
			return sess, err
		}

		now := time.Now()
		if p.moreToSend() && !now.Before(nextSend) {
			if err := p.send(ctx, sendBuf); err != nil {
				return sess, err
			}
			nextSend = nextSend.Add(p.cfg.Interval)
			now = time.Now()
		}

		p.expire(now, emit)

		if !p.moreToSend() && len(p.pending) == 0 {
			return sess, nil
		}

		wait := p.nextWake(now, nextSend)
		switch st := p.sock.PollReadable(waitMillis(wait)); st {
		case socket.OK:
			if err := p.receive(recvBuf, emit); err != nil {
				return sess, err
			}
		case socket.NoData:
		default:
			return sess, p.sock.StatusError("poll", st)
		}
	}
}

func (p *Prober) moreToSend() bool {
	return p.cfg.Count == 0 || p.sent < p.cfg.Count
}

func (p *Prober) send(ctx context.Context, buf []byte) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	seq := p.nextSeq
	p.nextSeq++
	p.sent++

	now := time.Now()
	f := &inflight{
		seq:      seq,
		sentMs:   clock.Milliseconds(),
		sentAt:   now,
		deadline: now.Add(p.cfg.Timeout),
	}
	if err := Encode(buf, seq, f.sentMs); err != nil {
		return err
	}

	// A failed send is reported as a timeout when its deadline passes.
	p.pending[seq] = f
	p.expiry.Add(f)

	if _, st := p.sock.SendTo(buf, p.cfg.Target); st != socket.OK {
		code := p.sock.LastError()
		if st != socket.Error || !(socket.IsWouldBlock(code) || socket.IsTransient(code)) {
			return p.sock.StatusError("send", st)
		}
		p.logger.Debug("probe send failed",
			logging.KeySeq, seq,
			logging.KeyCode, code)
	}

	p.metrics.RecordProbeSent()
	return nil
}

// expire reports every pending probe whose deadline has passed.
func (p *Prober) expire(now time.Time, emit Callback) {
	for p.expiry.Length() > 0 {
		f := p.expiry.Peek().(*inflight)
		if now.Before(f.deadline) {
			return
		}
		p.expiry.Remove()

		if _, ok := p.pending[f.seq]; !ok {
			continue // already answered
		}
		delete(p.pending, f.seq)

		p.metrics.RecordProbeLost()
		p.logger.Debug("probe timed out", logging.KeySeq, f.seq)
		emit(result.Probe{Seq: f.seq, Timeout: true, SentAt: f.sentAt})
	}
}

// receive drains queued datagrams and reports matching replies.
func (p *Prober) receive(buf []byte, emit Callback) error {
	for {
		n, from, st := p.sock.RecvFrom(buf)
		if st != socket.OK {
			code := p.sock.LastError()
			switch {
			case st == socket.Error && socket.IsWouldBlock(code):
				return nil
			case st == socket.Error && socket.IsTransient(code):
				p.logger.Debug("ignoring transient receive error", logging.KeyCode, code)
				continue
			case st == socket.Error && socket.IsTruncated(code):
				p.logger.Debug("ignoring oversized datagram", logging.KeyCode, code)
				continue
			default:
				return p.sock.StatusError("recv", st)
			}
		}

		if from != p.cfg.Target {
			p.logger.Debug("ignoring datagram from unexpected source", logging.KeyRemote, from.String())
			continue
		}
		seq, sentMs, ok := Decode(buf[:n])
		if !ok {
			continue
		}
		f, ok := p.pending[seq]
		if !ok || f.sentMs != sentMs {
			continue // late, duplicate or foreign
		}
		delete(p.pending, seq)

		rtt := time.Since(f.sentAt)
		p.metrics.RecordProbeReply(rtt.Seconds())
		p.logger.Debug("probe reply",
			logging.KeySeq, seq,
			logging.KeyRTT, rtt)
		emit(result.Probe{
			Seq:    seq,
			From:   from,
			RTT:    rtt,
			Bytes:  n,
			SentAt: f.sentAt,
		})
	}
}

// nextWake returns how long to wait for readiness before the next send or
// expiry is due.
func (p *Prober) nextWake(now, nextSend time.Time) time.Duration {
	wait := maxPollWait
	if p.moreToSend() {
		if d := nextSend.Sub(now); d < wait {
			wait = d
		}
	}
	if p.expiry.Length() > 0 {
		if d := p.expiry.Peek().(*inflight).deadline.Sub(now); d < wait {
			wait = d
		}
	}
	if wait < 0 {
		wait = 0
	}
	return wait
}

// waitMillis rounds d up to whole milliseconds so a sub-millisecond wait
// does not turn into a busy loop.
func waitMillis(d time.Duration) int {
	return int((d + time.Millisecond - 1) / time.Millisecond)
}
