package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
)

func TestNewExporter_TxtAlias(t *testing.T) {
	exp, err := NewExporter("txt")
	if err != nil {
		t.Fatalf("NewExporter(\"txt\") returned error: %v", err)
	}
	if exp == nil {
		t.Error("expected non-nil exporter for 'txt' format")
	}
}

func TestNewExporter_UnsupportedFormat(t *testing.T) {
	_, err := NewExporter("invalid")
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"out.json", FormatJSON},
		{"out.CSV", FormatCSV},
		{"out.txt", FormatText},
		{"out.text", FormatText},
		{"out", FormatJSON},
	}

	for _, tt := range tests {
		if got := DetectFormat(tt.filename); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestExportToFile_DetectsFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.csv")

	if err := ExportToFile(path, "", createTestSession()); err != nil {
		t.Fatalf("ExportToFile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "seq,target,from") {
		t.Errorf("expected CSV content, got %q", data)
	}
}

func TestExportToFile_BadFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.out")

	if err := ExportToFile(path, "yaml", createTestSession()); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestTextExporter_Export(t *testing.T) {
	var buf strings.Builder
	if err := NewTextExporter().Export(&buf, createTestSession()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"UDP probe to 127.0.0.1:27000",
		"Size: 64 B",
		"2  * (timeout)",
		"Loss: 33.3%",
		"RTT min/avg/max: 4.00/5.00/6.00 ms",
		"Duration: 3s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func createTestSession() *result.Session {
	target := endpoint.Localhost(27000)
	s := result.NewSession(target)
	s.Local = endpoint.Localhost(40000)
	s.Platform = "linux"
	s.Size = 64
	s.StartTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.EndTime = s.StartTime.Add(3 * time.Second)
	s.AddReply(1, target, 4*time.Millisecond, 64)
	s.AddTimeout(2)
	s.AddReply(3, target, 6*time.Millisecond, 64)
	return s
}

func TestNewExporter_CaseInsensitive(t *testing.T) {
	for _, f := range []Format{"JSON", "Csv", "TXT"} {
		if _, err := NewExporter(f); err != nil {
			t.Errorf("NewExporter(%q) returned error: %v", f, err)
		}
	}
}

func TestFormats_AllConstructible(t *testing.T) {
	formats := Formats()
	if len(formats) != 3 {
		t.Fatalf("expected 3 formats, got %v", formats)
	}
	for _, f := range formats {
		if _, err := NewExporter(f); err != nil {
			t.Errorf("NewExporter(%q) returned error: %v", f, err)
		}
	}
}
