package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// TextExporter exports probe sessions to human-readable text format.
type TextExporter struct{}

// NewTextExporter creates a new text exporter.
func NewTextExporter() *TextExporter {
	return &TextExporter{}
}

// Export writes the session as text to the writer.
func (e *TextExporter) Export(w io.Writer, s *result.Session) error {
	fmt.Fprintf(w, "UDP probe to %s\n", s.Target)
	fmt.Fprintf(w, "Local: %s\n", s.Local)
	if s.Platform != "" {
		fmt.Fprintf(w, "Platform: %s\n", s.Platform)
	}
	fmt.Fprintf(w, "Size: %s\n", humanize.Bytes(uint64(s.Size)))
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintln(w)

	for _, p := range s.Probes {
		if p.Timeout {
			fmt.Fprintf(w, "%5d  * (timeout)\n", p.Seq)
			continue
		}
		fmt.Fprintf(w, "%5d  %s  %d bytes  %.2fms\n", p.Seq, p.From, p.Bytes, msec(p.RTT))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Sent: %d  Received: %d  Loss: %.1f%%\n", s.Sent(), s.Received(), s.LossPercent())
	if s.Received() > 0 {
		fmt.Fprintf(w, "RTT min/avg/max: %.2f/%.2f/%.2f ms\n",
			msec(s.MinRTT()), msec(s.AvgRTT()), msec(s.MaxRTT()))
	}
	if d := s.Duration(); d > 0 {
		fmt.Fprintf(w, "Duration: %v\n", d.Round(time.Millisecond))
	}

	return nil
}
