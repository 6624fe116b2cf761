package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hervehildenbrand/udpkit/internal/config"
	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/spf13/cobra"
)

// GlobalOptions holds the flags shared by every subcommand.
type GlobalOptions struct {
	LogLevel   string
	LogFormat  string
	ConfigPath string
}

// NewRootCmd creates the root command and registers the subcommands.
func NewRootCmd(version string) *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   "udpkit",
		Short: "Non-blocking IPv4 UDP sockets, echo responder and prober",
		Long: `udpkit wraps the native datagram socket API of the host platform
(BSD sockets or WinSock) behind one status-returning interface.

The CLI exercises it: an echo responder, a sequenced round-trip prober
with a live TUI, platform information and an MCP tool server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogLevel != "" && !logging.IsValidLevel(opts.LogLevel) {
				return fmt.Errorf("invalid log level %q: must be debug, info, warn, or error", opts.LogLevel)
			}
			if opts.LogFormat != "" && !logging.IsValidFormat(opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be text or json", opts.LogFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "Log format: text|json (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML configuration file")

	cmd.AddCommand(
		NewInfoCmd(opts, version),
		NewEchoCmd(opts),
		NewPingCmd(opts),
		NewMCPCmd(opts, version),
	)

	return cmd
}

// loadConfig returns the file configuration, or the defaults when no file
// was given, with the global log flags applied on top.
func (o *GlobalOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	return cfg, nil
}

// newLogger builds the logger for cfg. Logs never go to stdout so they do
// not interleave with command output.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	return logging.NewLoggerWithWriter(cfg.Log.Level, cfg.Log.Format, w).
		With(logging.KeyComponent, "cli")
}

// socketOptions translates the socket section of cfg into Open options.
func socketOptions(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) []socket.Option {
	return []socket.Option{
		socket.WithBufferSizes(cfg.Socket.SendBuffer, cfg.Socket.RecvBuffer),
		socket.WithLogger(logger),
		socket.WithMetrics(m),
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
