package display

import (
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// RTTHistorySize is how many recent round trips the sparkline shows.
const RTTHistorySize = 30

// rttRing holds the last RTTHistorySize samples.
type rttRing struct {
	buf  [RTTHistorySize]time.Duration
	next int
	n    int
}

func (r *rttRing) push(d time.Duration) {
	r.buf[r.next] = d
	r.next = (r.next + 1) % RTTHistorySize
	if r.n < RTTHistorySize {
		r.n++
	}
}

// samples returns the held samples, oldest first.
func (r *rttRing) samples() []time.Duration {
	out := make([]time.Duration, 0, r.n)
	start := (r.next - r.n + RTTHistorySize) % RTTHistorySize
	for i := 0; i < r.n; i++ {
		out = append(out, r.buf[(start+i)%RTTHistorySize])
	}
	return out
}

// ProbeStats is the running summary shown by the TUI. The zero value is
// ready to use.
type ProbeStats struct {
	Sent     int
	Received int
	Bytes    uint64
	LastFrom endpoint.Endpoint

	Last   time.Duration
	Min    time.Duration
	Max    time.Duration
	Jitter time.Duration // RFC 3550 smoothed variation between consecutive RTTs

	total   time.Duration
	history rttRing
}

// NewProbeStats returns empty statistics.
func NewProbeStats() *ProbeStats {
	return &ProbeStats{}
}

// Add folds one probe outcome into the summary.
func (s *ProbeStats) Add(p result.Probe) {
	if p.Timeout {
		s.AddTimeout()
		return
	}
	s.AddReply(p.From, p.RTT, p.Bytes)
}

// AddReply records an answered probe.
func (s *ProbeStats) AddReply(from endpoint.Endpoint, rtt time.Duration, n int) {
	if s.Received > 0 {
		delta := rtt - s.Last
		if delta < 0 {
			delta = -delta
		}
		s.Jitter += (delta - s.Jitter) / 16
	}

	if s.Received == 0 || rtt < s.Min {
		s.Min = rtt
	}
	s.Max = max(s.Max, rtt)

	s.Sent++
	s.Received++
	s.Bytes += uint64(n)
	s.LastFrom = from
	s.Last = rtt
	s.total += rtt
	s.history.push(rtt)
}

// AddTimeout records an unanswered probe.
func (s *ProbeStats) AddTimeout() {
	s.Sent++
}

// History returns the recent round trips, oldest first.
func (s *ProbeStats) History() []time.Duration {
	return s.history.samples()
}

// LossPercent returns the share of probes without a reply.
func (s *ProbeStats) LossPercent() float64 {
	if s.Sent == 0 {
		return 0
	}
	lost := s.Sent - s.Received
	return 100 * float64(lost) / float64(s.Sent)
}

// AvgRTT returns the mean round trip of answered probes.
func (s *ProbeStats) AvgRTT() time.Duration {
	if s.Received == 0 {
		return 0
	}
	return s.total / time.Duration(s.Received)
}

// Reset clears everything.
func (s *ProbeStats) Reset() {
	*s = ProbeStats{}
}
