// Package display renders probe sessions as plain lines or an interactive TUI.
package display

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// SimpleRenderer renders probe outcomes one line at a time, ping style.
type SimpleRenderer struct {
	ShowTimestamp bool
}

// NewSimpleRenderer creates a new SimpleRenderer with default settings.
func NewSimpleRenderer() *SimpleRenderer {
	return &SimpleRenderer{}
}

// FormatRTT formats a duration as milliseconds.
func (r *SimpleRenderer) FormatRTT(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	return fmt.Sprintf("%.2fms", ms)
}

// RenderHeader renders the line printed before the first probe.
func (r *SimpleRenderer) RenderHeader(target, local endpoint.Endpoint, size int) string {
	return fmt.Sprintf("UDP PING %s from %s: %d bytes", target, local, size)
}

// RenderProbe renders a single probe outcome.
func (r *SimpleRenderer) RenderProbe(p result.Probe) string {
	var line string
	if p.Timeout {
		line = fmt.Sprintf("request timeout seq=%d", p.Seq)
	} else {
		line = fmt.Sprintf("%d bytes from %s: seq=%d time=%s", p.Bytes, p.From, p.Seq, r.FormatRTT(p.RTT))
	}
	if r.ShowTimestamp && !p.SentAt.IsZero() {
		line = fmt.Sprintf("[%s] %s", p.SentAt.Format("15:04:05.000"), line)
	}
	return line
}

// RenderSummary writes the closing statistics of a session.
func (r *SimpleRenderer) RenderSummary(w io.Writer, s *result.Session) {
	var bytes uint64
	for _, p := range s.Probes {
		bytes += uint64(p.Bytes)
	}

	fmt.Fprintf(w, "\n--- %s udp ping statistics ---\n", s.Target)
	fmt.Fprintf(w, "%s probes sent, %s received, %.1f%% loss, %s echoed, time %s\n",
		humanize.Comma(int64(s.Sent())),
		humanize.Comma(int64(s.Received())),
		s.LossPercent(),
		humanize.Bytes(bytes),
		s.Duration().Round(time.Millisecond))

	if s.Received() > 0 {
		fmt.Fprintf(w, "rtt min/avg/max = %s/%s/%s\n",
			r.FormatRTT(s.MinRTT()), r.FormatRTT(s.AvgRTT()), r.FormatRTT(s.MaxRTT()))
	}
}

// RenderSession writes a complete session: header, every probe and summary.
func (r *SimpleRenderer) RenderSession(w io.Writer, s *result.Session) {
	fmt.Fprintln(w, r.RenderHeader(s.Target, s.Local, s.Size))
	for _, p := range s.Probes {
		fmt.Fprintln(w, r.RenderProbe(p))
	}
	r.RenderSummary(w, s)
}
