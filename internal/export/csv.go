package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// CSVExporter exports probe sessions to CSV format, one row per probe.
type CSVExporter struct{}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Export writes the session as CSV to the writer.
func (e *CSVExporter) Export(w io.Writer, s *result.Session) error {
	writer := csv.NewWriter(w)

	header := []string{"seq", "target", "from", "bytes", "rtt_ms", "timeout", "sent_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, p := range s.Probes {
		if err := writer.Write(e.probeToRow(s, p)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// probeToRow converts a probe to a CSV row.
func (e *CSVExporter) probeToRow(s *result.Session, p result.Probe) []string {
	from, bytes, rtt := "", "", ""
	if !p.Timeout {
		from = p.From.String()
		bytes = strconv.Itoa(p.Bytes)
		rtt = fmt.Sprintf("%.3f", msec(p.RTT))
	}

	sentAt := ""
	if !p.SentAt.IsZero() {
		sentAt = p.SentAt.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}

	return []string{
		strconv.FormatUint(uint64(p.Seq), 10),
		s.Target.String(),
		from,
		bytes,
		rtt,
		strconv.FormatBool(p.Timeout),
		sentAt,
	}
}
