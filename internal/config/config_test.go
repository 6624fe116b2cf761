package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Socket.SendBuffer != 32768 || cfg.Socket.RecvBuffer != 32768 {
		t.Errorf("Socket buffers = %d/%d, want 32768", cfg.Socket.SendBuffer, cfg.Socket.RecvBuffer)
	}
	if cfg.Echo.Bind != "0.0.0.0:27000" {
		t.Errorf("Echo.Bind = %s", cfg.Echo.Bind)
	}
	if cfg.Probe.Interval != time.Second {
		t.Errorf("Probe.Interval = %v, want 1s", cfg.Probe.Interval)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestParse_ValidConfig(t *testing.T) {
	yamlConfig := `
log:
  level: debug
  format: json
socket:
  send_buffer: 65536
echo:
  bind: "127.0.0.1:14000"
  poll_timeout: 250ms
  metrics_addr: ":9090"
probe:
  count: 0
  interval: 200ms
  timeout: 1s
  size: 128
  rate: 20
alerts:
  latency: 50ms
  loss: 5
`
	cfg, err := Parse([]byte(yamlConfig))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
	}
	if cfg.Socket.SendBuffer != 65536 {
		t.Errorf("Socket.SendBuffer = %d", cfg.Socket.SendBuffer)
	}
	if cfg.Socket.RecvBuffer != 32768 {
		t.Errorf("Socket.RecvBuffer = %d, want default", cfg.Socket.RecvBuffer)
	}
	if cfg.Echo.PollTimeout != 250*time.Millisecond {
		t.Errorf("Echo.PollTimeout = %v", cfg.Echo.PollTimeout)
	}
	if cfg.Echo.BufferSize != 2048 {
		t.Errorf("Echo.BufferSize = %d, want default", cfg.Echo.BufferSize)
	}
	if cfg.Probe.Count != 0 || cfg.Probe.Size != 128 || cfg.Probe.Rate != 20 {
		t.Errorf("unexpected probe config %+v", cfg.Probe)
	}
	if cfg.Alerts.Latency != 50*time.Millisecond || cfg.Alerts.Loss != 5 {
		t.Errorf("unexpected alerts %+v", cfg.Alerts)
	}
}

func TestParse_EnvExpansion(t *testing.T) {
	t.Setenv("UDPKIT_TEST_BIND", "127.0.0.1:15000")

	cfg, err := Parse([]byte(`
echo:
  bind: "${UDPKIT_TEST_BIND}"
log:
  level: "${UDPKIT_TEST_UNSET_LEVEL:-warn}"
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Echo.Bind != "127.0.0.1:15000" {
		t.Errorf("Echo.Bind = %s", cfg.Echo.Bind)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn from default", cfg.Log.Level)
	}
}

func TestExpandEnvVars_KeepsUnknown(t *testing.T) {
	got := expandEnvVars("$UDPKIT_TEST_DEFINITELY_UNSET")
	if got != "$UDPKIT_TEST_DEFINITELY_UNSET" {
		t.Errorf("expected unknown variable to be kept, got %q", got)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero send buffer", func(c *Config) { c.Socket.SendBuffer = 0 }, "socket.send_buffer"},
		{"hostname bind", func(c *Config) { c.Echo.Bind = "localhost:80" }, "echo.bind"},
		{"zero poll timeout", func(c *Config) { c.Echo.PollTimeout = 0 }, "echo.poll_timeout"},
		{"sub-millisecond poll timeout", func(c *Config) { c.Echo.PollTimeout = 500 * time.Microsecond }, "echo.poll_timeout"},
		{"huge buffer", func(c *Config) { c.Echo.BufferSize = 70000 }, "echo.buffer_size"},
		{"negative count", func(c *Config) { c.Probe.Count = -1 }, "probe.count"},
		{"zero interval", func(c *Config) { c.Probe.Interval = 0 }, "probe.interval"},
		{"tiny probe", func(c *Config) { c.Probe.Size = 4 }, "probe.size"},
		{"negative rate", func(c *Config) { c.Probe.Rate = -1 }, "probe.rate"},
		{"loss over 100", func(c *Config) { c.Alerts.Loss = 150 }, "alerts.loss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "udpkit.yaml")
	if err := os.WriteFile(path, []byte("probe:\n  count: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Probe.Count != 3 {
		t.Errorf("Probe.Count = %d, want 3", cfg.Probe.Count)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("log: [unclosed")); err == nil {
		t.Error("expected parse error")
	}
}
