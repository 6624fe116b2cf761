package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hervehildenbrand/udpkit/internal/config"
	"github.com/hervehildenbrand/udpkit/internal/display"
	"github.com/hervehildenbrand/udpkit/internal/export"
	"github.com/hervehildenbrand/udpkit/internal/monitor"
	"github.com/hervehildenbrand/udpkit/internal/probe"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
	"github.com/hervehildenbrand/udpkit/pkg/result"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// PingOptions holds the ping command flags.
type PingOptions struct {
	Target       endpoint.Endpoint
	Count        int
	Interval     string
	Timeout      string
	Size         int
	Rate         float64
	Simple       bool
	Timestamps   bool
	Output       string
	Format       string
	AlertLatency string
	AlertLoss    string
	DryRun       bool
}

// NewPingCmd creates the ping subcommand.
func NewPingCmd(opts *GlobalOptions) *cobra.Command {
	var po PingOptions

	cmd := &cobra.Command{
		Use:   "ping <a.b.c.d:port>",
		Short: "Measure round trips to a UDP echo responder",
		Long: `Send sequenced probes to an echo responder and report each round trip,
the loss rate and the latency spread. A live TUI is shown when stdout is a
terminal; --simple prints one line per probe instead.

Alerts fire when a window of probes crosses --alert-latency or --alert-loss,
or when replies start arriving from a different endpoint.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			target, err := endpoint.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid target: %w", err)
			}
			if target.IsAny() {
				return fmt.Errorf("invalid target %s: address and port are required", target)
			}
			po.Target = target

			if po.Format != "" {
				if _, err := export.NewExporter(export.Format(po.Format)); err != nil {
					return err
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := applyPingFlags(cmd, &po, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if po.DryRun {
				return nil
			}

			return runPing(cmd, &po, cfg)
		},
	}

	defaults := config.Default()

	cmd.Flags().IntVarP(&po.Count, "count", "n", defaults.Probe.Count, "Probes to send (0 = until interrupted)")
	cmd.Flags().StringVar(&po.Interval, "interval", defaults.Probe.Interval.String(), "Interval between probes")
	cmd.Flags().StringVar(&po.Timeout, "timeout", defaults.Probe.Timeout.String(), "How long to wait for each reply")
	cmd.Flags().IntVarP(&po.Size, "size", "s", defaults.Probe.Size, "Probe datagram size in bytes")
	cmd.Flags().Float64Var(&po.Rate, "rate", 0, "Probes per second ceiling (0 = interval only)")

	cmd.Flags().StringVar(&po.AlertLatency, "alert-latency", "", "Alert on average latency threshold (e.g., 50ms)")
	cmd.Flags().StringVar(&po.AlertLoss, "alert-loss", "", "Alert on loss threshold (e.g., 5%)")

	cmd.Flags().BoolVar(&po.Simple, "simple", false, "Simple output (no TUI)")
	cmd.Flags().BoolVar(&po.Timestamps, "timestamps", false, "Prefix simple output lines with the send time")

	cmd.Flags().StringVarP(&po.Output, "output", "o", "", "Export to file (json/csv/txt)")
	cmd.Flags().StringVar(&po.Format, "format", "", "Explicit export format")

	cmd.Flags().BoolVar(&po.DryRun, "dry-run", false, "Validate args without probing")

	return cmd
}

// applyPingFlags overrides cfg with every flag the user set explicitly.
func applyPingFlags(cmd *cobra.Command, po *PingOptions, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("count") {
		cfg.Probe.Count = po.Count
	}
	if flags.Changed("interval") {
		d, err := time.ParseDuration(po.Interval)
		if err != nil {
			return fmt.Errorf("invalid interval: %w", err)
		}
		cfg.Probe.Interval = d
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(po.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Probe.Timeout = d
	}
	if flags.Changed("size") {
		cfg.Probe.Size = po.Size
	}
	if flags.Changed("rate") {
		cfg.Probe.Rate = po.Rate
	}
	if flags.Changed("alert-latency") {
		d, err := parseLatencyThreshold(po.AlertLatency)
		if err != nil {
			return fmt.Errorf("invalid latency threshold: %w", err)
		}
		cfg.Alerts.Latency = d
	}
	if flags.Changed("alert-loss") {
		loss, err := parseLossThreshold(po.AlertLoss)
		if err != nil {
			return fmt.Errorf("invalid loss threshold: %w", err)
		}
		cfg.Alerts.Loss = loss
	}
	return nil
}

// parseLatencyThreshold parses a latency threshold string (e.g., "100ms", "1s").
func parseLatencyThreshold(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// parseLossThreshold parses a loss threshold string (e.g., "5%", "10").
func parseLossThreshold(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	s = strings.TrimSuffix(s, "%")
	return strconv.ParseFloat(s, 64)
}

// runPing opens a socket, probes the target and renders and exports the
// session.
func runPing(cmd *cobra.Command, po *PingOptions, cfg *config.Config) error {
	logger := newLogger(cfg, cmd.ErrOrStderr())

	sock, err := socket.Open(socketOptions(cfg, logger, nil)...)
	if err != nil {
		return fmt.Errorf("failed to open socket: %w", err)
	}
	defer sock.Close()

	if st := sock.Bind(endpoint.Any); st != socket.OK {
		return fmt.Errorf("failed to bind: %w", sock.StatusError("bind", st))
	}

	prober, err := probe.New(sock, probe.Config{
		Target:   po.Target,
		Count:    cfg.Probe.Count,
		Interval: cfg.Probe.Interval,
		Timeout:  cfg.Probe.Timeout,
		Size:     cfg.Probe.Size,
		Rate:     cfg.Probe.Rate,
	}, probe.WithLogger(logger))
	if err != nil {
		return err
	}

	monCfg := monitor.DefaultConfig()
	monCfg.LatencyThreshold = cfg.Alerts.Latency
	monCfg.LossThreshold = cfg.Alerts.Loss
	mon := monitor.NewMonitor(monCfg)

	ctx, cancel := signalContext()
	defer cancel()

	local, _ := sock.EndPoint()

	var sess *result.Session
	if !po.Simple && isTerminal(cmd.OutOrStdout()) {
		sess, err = runPingTUI(ctx, cancel, po.Target, local, prober, mon)
	} else {
		sess, err = runPingSimple(ctx, cmd.OutOrStdout(), po, cfg.Probe.Size, local, prober, mon, logger)
	}

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return fmt.Errorf("probe failed: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "\nProbing interrupted")
	}

	display.NewSimpleRenderer().RenderSummary(cmd.OutOrStdout(), sess)

	if po.Output != "" {
		if err := export.ExportToFile(po.Output, export.Format(po.Format), sess); err != nil {
			return fmt.Errorf("failed to export: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results exported to %s\n", po.Output)
	}

	return nil
}

// runPingSimple prints one line per probe and every alert as it fires.
func runPingSimple(ctx context.Context, w io.Writer, po *PingOptions, size int, local endpoint.Endpoint, prober *probe.Prober, mon *monitor.Monitor, logger *slog.Logger) (*result.Session, error) {
	renderer := display.NewSimpleRenderer()
	renderer.ShowTimestamp = po.Timestamps

	mon.SetCallback(func(changes []monitor.Change) {
		for _, c := range changes {
			fmt.Fprintf(w, "ALERT: %s\n", c.String())
			logger.Warn("probe alert", "type", string(c.Type), "window", c.Window)
		}
	})

	fmt.Fprintln(w, renderer.RenderHeader(po.Target, local, size))
	return prober.Run(ctx, func(p result.Probe) {
		fmt.Fprintln(w, renderer.RenderProbe(p))
		mon.Observe(p)
	})
}

// runPingTUI feeds probe outcomes and alerts to the TUI. Quitting the TUI
// cancels the run.
func runPingTUI(ctx context.Context, cancel context.CancelFunc, target, local endpoint.Endpoint, prober *probe.Prober, mon *monitor.Monitor) (*result.Session, error) {
	probes := make(chan result.Probe, 64)
	alerts := make(chan []monitor.Change, 8)
	done := make(chan error, 1)
	finished := make(chan struct{})

	var sess *result.Session
	var runErr error

	go func() {
		defer close(finished)

		sess, runErr = prober.Run(ctx, func(p result.Probe) {
			select {
			case probes <- p:
			case <-ctx.Done():
			}
			if changes := mon.Observe(p); len(changes) > 0 {
				select {
				case alerts <- changes:
				case <-ctx.Done():
				}
			}
		})
		close(probes)
		done <- runErr
	}()

	tuiErr := display.RunTUI(target, local, socket.PlatformName(), probes, alerts, done)

	cancel()
	<-finished

	if tuiErr != nil {
		return sess, fmt.Errorf("TUI error: %w", tuiErr)
	}
	return sess, runErr
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
