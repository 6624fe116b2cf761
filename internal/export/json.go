// Package export writes probe sessions as JSON, CSV or text.
package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// ExportedSession is the JSON representation of a probe session.
type ExportedSession struct {
	Target      string          `json:"target"`
	Local       string          `json:"local"`
	Platform    string          `json:"platform,omitempty"`
	Size        int             `json:"size"`
	StartTime   time.Time       `json:"startTime,omitempty"`
	EndTime     time.Time       `json:"endTime,omitempty"`
	Sent        int             `json:"sent"`
	Received    int             `json:"received"`
	LossPercent float64         `json:"lossPercent"`
	MinRTT      float64         `json:"minRtt"` // in ms
	AvgRTT      float64         `json:"avgRtt"` // in ms
	MaxRTT      float64         `json:"maxRtt"` // in ms
	Probes      []ExportedProbe `json:"probes"`
}

// ExportedProbe is the JSON representation of a single probe.
type ExportedProbe struct {
	Seq     uint32    `json:"seq"`
	From    string    `json:"from,omitempty"`
	RTT     float64   `json:"rtt,omitempty"` // in ms
	Bytes   int       `json:"bytes,omitempty"`
	Timeout bool      `json:"timeout,omitempty"`
	SentAt  time.Time `json:"sentAt,omitempty"`
}

// JSONExporter exports probe sessions to JSON format.
type JSONExporter struct {
	Pretty bool // Whether to pretty-print the JSON
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{
		Pretty: false,
	}
}

// Export writes the session as JSON to the writer.
func (e *JSONExporter) Export(w io.Writer, s *result.Session) error {
	encoder := json.NewEncoder(w)
	if e.Pretty {
		encoder.SetIndent("", "  ")
	}

	return encoder.Encode(Convert(s))
}

// Convert transforms a Session to its exported form.
func Convert(s *result.Session) *ExportedSession {
	exported := &ExportedSession{
		Target:      s.Target.String(),
		Local:       s.Local.String(),
		Platform:    s.Platform,
		Size:        s.Size,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Sent:        s.Sent(),
		Received:    s.Received(),
		LossPercent: s.LossPercent(),
		MinRTT:      msec(s.MinRTT()),
		AvgRTT:      msec(s.AvgRTT()),
		MaxRTT:      msec(s.MaxRTT()),
		Probes:      make([]ExportedProbe, 0, len(s.Probes)),
	}

	for _, p := range s.Probes {
		exported.Probes = append(exported.Probes, convertProbe(p))
	}

	return exported
}

func convertProbe(p result.Probe) ExportedProbe {
	if p.Timeout {
		return ExportedProbe{Seq: p.Seq, Timeout: true, SentAt: p.SentAt}
	}
	return ExportedProbe{
		Seq:    p.Seq,
		From:   p.From.String(),
		RTT:    msec(p.RTT),
		Bytes:  p.Bytes,
		SentAt: p.SentAt,
	}
}

func msec(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
