package main

import (
	"github.com/hervehildenbrand/udpkit/internal/mcpserver"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/spf13/cobra"
)

// NewMCPCmd creates the mcp subcommand.
func NewMCPCmd(opts *GlobalOptions, version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the udp_probe and platform_info tools over MCP stdio",
		Long: `Run a Model Context Protocol server on stdin and stdout.

Tools:
  udp_probe      probe an echo responder and return the session as JSON
  platform_info  report the socket platform and an ephemeral endpoint

Logs are written to stderr; stdout carries the protocol only.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv := mcpserver.New(version,
				mcpserver.WithLogger(newLogger(cfg, cmd.ErrOrStderr())),
				mcpserver.WithMetrics(metrics.Default()))
			return srv.ServeStdio()
		},
	}
}
