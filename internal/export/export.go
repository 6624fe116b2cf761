package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/hervehildenbrand/udpkit/pkg/result"
)

// Exporter writes a probe session in one format.
type Exporter interface {
	Export(w io.Writer, s *result.Session) error
}

// Format names an export format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

var registry = []struct {
	format  Format
	aliases []Format
	exts    []string
	create  func() Exporter
}{
	{FormatJSON, nil, []string{".json"}, func() Exporter { return NewJSONExporter() }},
	{FormatCSV, nil, []string{".csv"}, func() Exporter { return NewCSVExporter() }},
	{FormatText, []Format{"txt"}, []string{".txt", ".text"}, func() Exporter { return NewTextExporter() }},
}

// Formats lists the canonical format names.
func Formats() []Format {
	out := make([]Format, 0, len(registry))
	for _, r := range registry {
		out = append(out, r.format)
	}
	return out
}

// DetectFormat picks a format from the file extension, falling back to JSON.
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, r := range registry {
		if slices.Contains(r.exts, ext) {
			return r.format
		}
	}
	return FormatJSON
}

// NewExporter returns the exporter for format. Names are case-insensitive.
func NewExporter(format Format) (Exporter, error) {
	name := Format(strings.ToLower(string(format)))
	for _, r := range registry {
		if r.format == name || slices.Contains(r.aliases, name) {
			return r.create(), nil
		}
	}
	return nil, fmt.Errorf("unsupported format: %s", format)
}

// ExportToFile writes s to filename. An empty format is detected from the
// file extension.
func ExportToFile(filename string, format Format, s *result.Session) (err error) {
	if format == "" {
		format = DetectFormat(filename)
	}

	exporter, err := NewExporter(format)
	if err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", filename, cerr)
		}
	}()

	if err := exporter.Export(f, s); err != nil {
		return fmt.Errorf("failed to write %s export: %w", format, err)
	}
	return nil
}
