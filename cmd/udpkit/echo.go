package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hervehildenbrand/udpkit/internal/echo"
	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// EchoOptions holds the echo command flags.
type EchoOptions struct {
	Bind        string
	MetricsAddr string
	PollTimeout string
	DryRun      bool
}

// NewEchoCmd creates the echo subcommand.
func NewEchoCmd(opts *GlobalOptions) *cobra.Command {
	var eo EchoOptions

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a poll-driven UDP echo responder",
		Long: `Bind a socket and return every datagram to its sender unchanged until
interrupted. Pair it with "udpkit ping" on another host.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("bind") {
				cfg.Echo.Bind = eo.Bind
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.Echo.MetricsAddr = eo.MetricsAddr
			}
			if cmd.Flags().Changed("poll-timeout") {
				d, err := time.ParseDuration(eo.PollTimeout)
				if err != nil {
					return fmt.Errorf("invalid poll timeout: %w", err)
				}
				cfg.Echo.PollTimeout = d
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			bind, err := endpoint.Parse(cfg.Echo.Bind)
			if err != nil {
				return err
			}

			if eo.DryRun {
				return nil
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			m := metrics.Default()

			sock, err := socket.Open(socketOptions(cfg, logger, m)...)
			if err != nil {
				return fmt.Errorf("failed to open socket: %w", err)
			}
			defer sock.Close()

			if st := sock.Bind(bind); st != socket.OK {
				return fmt.Errorf("failed to bind %s: %w", bind, sock.StatusError("bind", st))
			}

			if cfg.Echo.MetricsAddr != "" {
				stop, addr, err := startMetricsServer(cfg.Echo.MetricsAddr, logger)
				if err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
				defer stop()
				fmt.Fprintf(cmd.OutOrStdout(), "Metrics at http://%s/metrics\n", addr)
			}

			local, _ := sock.EndPoint()
			fmt.Fprintf(cmd.OutOrStdout(), "Echo responder listening on %s (%s)\n", local, socket.PlatformName())
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			ctx, cancel := signalContext()
			defer cancel()

			srv := echo.New(sock,
				echo.WithPollTimeout(cfg.Echo.PollTimeout),
				echo.WithBufferSize(cfg.Echo.BufferSize),
				echo.WithLogger(logger),
				echo.WithMetrics(m))
			serveErr := srv.Serve(ctx)

			fmt.Fprint(cmd.OutOrStdout(), formatEchoStats(srv.Stats()))
			return serveErr
		},
	}

	cmd.Flags().StringVar(&eo.Bind, "bind", "0.0.0.0:27000", "Local endpoint to bind (a.b.c.d:port)")
	cmd.Flags().StringVar(&eo.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g., :9090)")
	cmd.Flags().StringVar(&eo.PollTimeout, "poll-timeout", "100ms", "Readiness wait per poll")
	cmd.Flags().BoolVar(&eo.DryRun, "dry-run", false, "Validate flags and config without binding")

	return cmd
}

// startMetricsServer serves promhttp on addr. It returns a stop function and
// the address actually listened on.
func startMetricsServer(addr string, logger *slog.Logger) (func(), string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", logging.KeyError, err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, ln.Addr().String(), nil
}

func formatEchoStats(s echo.Stats) string {
	return fmt.Sprintf("\nEcho stopped: %s received, %s echoed, %s dropped, %s\n",
		humanize.Comma(int64(s.Received)),
		humanize.Comma(int64(s.Echoed)),
		humanize.Comma(int64(s.Dropped)),
		humanize.Bytes(s.Bytes))
}
