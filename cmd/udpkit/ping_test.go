package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hervehildenbrand/udpkit/internal/echo"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

func TestPingCommand_RequiresTarget(t *testing.T) {
	_, err := execute(t, "ping")

	if err == nil {
		t.Error("expected error when no target provided")
	}
}

func TestPingCommand_AcceptsTarget(t *testing.T) {
	if _, err := execute(t, "ping", "127.0.0.1:27000", "--dry-run"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPingCommand_Validation(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"hostname target", []string{"localhost:27000"}, "invalid target"},
		{"missing port", []string{"127.0.0.1"}, "invalid target"},
		{"any target", []string{"0.0.0.0:0"}, "address and port are required"},
		{"bad format", []string{"127.0.0.1:9", "--format", "xml"}, "unsupported format"},
		{"bad interval", []string{"127.0.0.1:9", "--interval", "soon"}, "invalid interval"},
		{"bad timeout", []string{"127.0.0.1:9", "--timeout", "later"}, "invalid timeout"},
		{"small size", []string{"127.0.0.1:9", "--size", "8"}, "probe.size"},
		{"negative count", []string{"127.0.0.1:9", "--count", "-1"}, "probe.count"},
		{"negative rate", []string{"127.0.0.1:9", "--rate", "-2"}, "probe.rate"},
		{"bad latency alert", []string{"127.0.0.1:9", "--alert-latency", "fast"}, "invalid latency threshold"},
		{"bad loss alert", []string{"127.0.0.1:9", "--alert-loss", "lots"}, "invalid loss threshold"},
		{"loss over 100", []string{"127.0.0.1:9", "--alert-loss", "150%"}, "alerts.loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"ping", "--dry-run"}, tt.args...)
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

func TestParseLatencyThreshold(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"50ms", 50 * time.Millisecond, false},
		{"1s", time.Second, false},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := parseLatencyThreshold(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLatencyThreshold(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && d != tt.want {
				t.Errorf("parseLatencyThreshold(%q) = %v, want %v", tt.input, d, tt.want)
			}
		})
	}
}

func TestParseLossThreshold(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"", 0, false},
		{"5%", 5, false},
		{"12.5", 12.5, false},
		{"lots", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			loss, err := parseLossThreshold(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLossThreshold(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && loss != tt.want {
				t.Errorf("parseLossThreshold(%q) = %v, want %v", tt.input, loss, tt.want)
			}
		})
	}
}

// startEcho runs an echo responder on an ephemeral localhost port.
func startEcho(t *testing.T) endpoint.Endpoint {
	t.Helper()

	sock, err := socket.Open()
	if err != nil {
		t.Skipf("sockets unavailable: %v", err)
	}
	if st := sock.Bind(endpoint.Localhost(0)); st != socket.OK {
		sock.Close()
		t.Skipf("cannot bind localhost: %v", sock.StatusError("bind", st))
	}
	local, _ := sock.EndPoint()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = echo.New(sock, echo.WithPollTimeout(10*time.Millisecond)).Serve(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		sock.Close()
	})
	return local
}

func TestPingCommand_ProbesEchoResponder(t *testing.T) {
	target := startEcho(t)
	outFile := filepath.Join(t.TempDir(), "session.csv")

	out, err := execute(t, "ping", target.String(),
		"--simple",
		"--count", "3",
		"--interval", "10ms",
		"--timeout", "1s",
		"--output", outFile)
	if err != nil {
		t.Fatalf("unexpected error: %v\n%s", err, out)
	}

	for _, want := range []string{"UDP PING " + target.String(), "bytes from " + target.String(), "3 probes sent, 3 received", "Results exported to"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	data, err := os.ReadFile(outFile)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Errorf("expected header and 3 rows, got %d lines", len(lines))
	}
}
