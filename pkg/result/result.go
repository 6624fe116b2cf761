// Package result defines the data model for UDP round-trip probe sessions.
package result

import (
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

// Probe is the outcome of a single probe datagram.
type Probe struct {
	Seq     uint32
	From    endpoint.Endpoint
	RTT     time.Duration
	Bytes   int
	Timeout bool
	SentAt  time.Time
}

// Session is the complete result of probing one target.
type Session struct {
	Target    endpoint.Endpoint // Echo responder probed
	Local     endpoint.Endpoint // Resolved local endpoint of the probing socket
	Platform  string            // Platform name of the prober
	Size      int               // Probe datagram size in bytes
	Probes    []Probe           // Outcomes in completion order
	StartTime time.Time
	EndTime   time.Time
}

// NewSession creates an empty session for the given target.
func NewSession(target endpoint.Endpoint) *Session {
	return &Session{
		Target: target,
		Probes: make([]Probe, 0),
	}
}

// AddReply records a probe answered after rtt.
func (s *Session) AddReply(seq uint32, from endpoint.Endpoint, rtt time.Duration, n int) {
	s.Probes = append(s.Probes, Probe{
		Seq:   seq,
		From:  from,
		RTT:   rtt,
		Bytes: n,
	})
}

// AddTimeout records a probe that was never answered.
func (s *Session) AddTimeout(seq uint32) {
	s.Probes = append(s.Probes, Probe{
		Seq:     seq,
		Timeout: true,
	})
}

// Add records an already built probe outcome.
func (s *Session) Add(p Probe) {
	s.Probes = append(s.Probes, p)
}

// Sent returns the number of probes with a known outcome.
func (s *Session) Sent() int {
	return len(s.Probes)
}

// Received returns the number of answered probes.
func (s *Session) Received() int {
	var n int
	for _, p := range s.Probes {
		if !p.Timeout {
			n++
		}
	}
	return n
}

// AvgRTT calculates the average RTT excluding timeouts.
func (s *Session) AvgRTT() time.Duration {
	var total time.Duration
	var count int

	for _, p := range s.Probes {
		if !p.Timeout {
			total += p.RTT
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// MinRTT returns the smallest RTT, or 0 when nothing was answered.
func (s *Session) MinRTT() time.Duration {
	var lowest time.Duration
	for _, p := range s.Probes {
		if !p.Timeout && (lowest == 0 || p.RTT < lowest) {
			lowest = p.RTT
		}
	}
	return lowest
}

// MaxRTT returns the largest RTT, or 0 when nothing was answered.
func (s *Session) MaxRTT() time.Duration {
	var highest time.Duration
	for _, p := range s.Probes {
		if !p.Timeout && p.RTT > highest {
			highest = p.RTT
		}
	}
	return highest
}

// LossPercent calculates the packet loss percentage.
func (s *Session) LossPercent() float64 {
	if len(s.Probes) == 0 {
		return 0
	}

	var timeouts int
	for _, p := range s.Probes {
		if p.Timeout {
			timeouts++
		}
	}

	return float64(timeouts) / float64(len(s.Probes)) * 100
}

// Duration returns how long the session ran.
func (s *Session) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}
