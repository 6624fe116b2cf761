package main

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/hervehildenbrand/udpkit/internal/echo"
	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
)

func TestEchoCommand_DryRunDefaults(t *testing.T) {
	if _, err := execute(t, "echo", "--dry-run"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEchoCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad bind", []string{"--bind", "localhost:27000"}, "echo.bind"},
		{"bad poll timeout", []string{"--poll-timeout", "soon"}, "invalid poll timeout"},
		{"zero poll timeout", []string{"--poll-timeout", "0s"}, "echo.poll_timeout"},
		{"extra argument", []string{"extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"echo", "--dry-run"}, tt.args...)
			_, err := execute(t, args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestStartMetricsServer_ServesMetrics(t *testing.T) {
	metrics.Default().RecordOpen()
	defer metrics.Default().RecordClose()

	stop, addr, err := startMetricsServer("127.0.0.1:0", logging.NopLogger())
	if err != nil {
		t.Fatalf("failed to start metrics server: %v", err)
	}
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "udpkit_sockets_open") {
		t.Error("expected udpkit_sockets_open in metrics output")
	}
}

func TestFormatEchoStats(t *testing.T) {
	text := formatEchoStats(echo.Stats{Received: 1234, Echoed: 1200, Dropped: 34, Bytes: 2048})

	for _, want := range []string{"1,234 received", "1,200 echoed", "34 dropped", "2.0 kB"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
}
