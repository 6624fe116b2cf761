// Package config loads the YAML configuration shared by the udpkit tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"gopkg.in/yaml.v3"
)

// MinProbeSize is the smallest probe datagram: magic, sequence and timestamp.
const MinProbeSize = 12

// MaxDatagramSize is the largest UDP payload over IPv4.
const MaxDatagramSize = 65507

// Config is the root configuration.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Socket SocketConfig `yaml:"socket"`
	Echo   EchoConfig   `yaml:"echo"`
	Probe  ProbeConfig  `yaml:"probe"`
	Alerts AlertConfig  `yaml:"alerts"`
}

// LogConfig selects the logger level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SocketConfig holds the buffer sizes applied when a socket is bound.
type SocketConfig struct {
	SendBuffer uint32 `yaml:"send_buffer"`
	RecvBuffer uint32 `yaml:"recv_buffer"`
}

// EchoConfig configures the echo responder.
type EchoConfig struct {
	Bind        string        `yaml:"bind"`
	PollTimeout time.Duration `yaml:"poll_timeout"`
	BufferSize  int           `yaml:"buffer_size"`
	MetricsAddr string        `yaml:"metrics_addr"`
}

// ProbeConfig configures the round-trip prober.
type ProbeConfig struct {
	Count    int           `yaml:"count"` // 0 probes until cancelled
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	Size     int           `yaml:"size"`
	Rate     float64       `yaml:"rate"` // probes per second, 0 disables the limiter
}

// AlertConfig sets monitor thresholds. Zero disables a threshold.
type AlertConfig struct {
	Latency time.Duration `yaml:"latency"`
	Loss    float64       `yaml:"loss"` // percent
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Socket: SocketConfig{
			SendBuffer: 1 << 15,
			RecvBuffer: 1 << 15,
		},
		Echo: EchoConfig{
			Bind:        "0.0.0.0:27000",
			PollTimeout: 100 * time.Millisecond,
			BufferSize:  2048,
		},
		Probe: ProbeConfig{
			Count:    10,
			Interval: time.Second,
			Timeout:  2 * time.Second,
			Size:     64,
		},
	}
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML over the defaults, expanding environment variables first.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envVarRegex matches ${VAR}, ${VAR:-default} or $VAR.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandEnvVars(s string) string {
	return envVarRegex.ReplaceAllStringFunc(s, func(match string) string {
		var name string
		if strings.HasPrefix(match, "${") {
			name = match[2 : len(match)-1]
		} else {
			name = match[1:]
		}

		if idx := strings.Index(name, ":-"); idx != -1 {
			if val, ok := os.LookupEnv(name[:idx]); ok {
				return val
			}
			return name[idx+2:]
		}

		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return match
	})
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !logging.IsValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log.level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}
	if !logging.IsValidFormat(c.Log.Format) {
		errs = append(errs, fmt.Sprintf("invalid log.format: %s (must be text or json)", c.Log.Format))
	}

	if c.Socket.SendBuffer == 0 {
		errs = append(errs, "socket.send_buffer must be positive")
	}
	if c.Socket.RecvBuffer == 0 {
		errs = append(errs, "socket.recv_buffer must be positive")
	}

	if _, err := endpoint.Parse(c.Echo.Bind); err != nil {
		errs = append(errs, fmt.Sprintf("echo.bind: %v", err))
	}
	if c.Echo.PollTimeout < time.Millisecond {
		errs = append(errs, "echo.poll_timeout must be at least 1ms")
	}
	if c.Echo.BufferSize <= 0 || c.Echo.BufferSize > MaxDatagramSize {
		errs = append(errs, fmt.Sprintf("echo.buffer_size must be between 1 and %d", MaxDatagramSize))
	}

	if c.Probe.Count < 0 {
		errs = append(errs, "probe.count must not be negative")
	}
	if c.Probe.Interval <= 0 {
		errs = append(errs, "probe.interval must be positive")
	}
	if c.Probe.Timeout <= 0 {
		errs = append(errs, "probe.timeout must be positive")
	}
	if c.Probe.Size < MinProbeSize || c.Probe.Size > MaxDatagramSize {
		errs = append(errs, fmt.Sprintf("probe.size must be between %d and %d", MinProbeSize, MaxDatagramSize))
	}
	if c.Probe.Rate < 0 {
		errs = append(errs, "probe.rate must not be negative")
	}

	if c.Alerts.Latency < 0 {
		errs = append(errs, "alerts.latency must not be negative")
	}
	if c.Alerts.Loss < 0 || c.Alerts.Loss > 100 {
		errs = append(errs, "alerts.loss must be between 0 and 100")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
