package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/hervehildenbrand/udpkit/internal/mcpserver"
	"github.com/spf13/cobra"
)

var infoLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

// InfoResult is what the info command reports.
type InfoResult struct {
	Version           string `json:"version"`
	Platform          string `json:"platform"`
	SendBufferSize    uint32 `json:"sendBufferSize"`
	RecvBufferSize    uint32 `json:"recvBufferSize"`
	EphemeralEndpoint string `json:"ephemeralEndpoint"`
	TimerMillis       uint32 `json:"timerMillis"`
}

// NewInfoCmd creates the info subcommand.
func NewInfoCmd(opts *GlobalOptions, version string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show the socket platform and what it assigns",
		Long: `Open and bind a throwaway socket on 0.0.0.0:0 and report the platform
name, the socket buffer sizes and the ephemeral endpoint the OS chose.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())

			info, err := mcpserver.GatherPlatformInfo(socketOptions(cfg, logger, nil)...)
			if err != nil {
				return fmt.Errorf("failed to query platform: %w", err)
			}

			result := InfoResult{
				Version:           version,
				Platform:          info.Platform,
				SendBufferSize:    info.SendBufferSize,
				RecvBufferSize:    info.RecvBufferSize,
				EphemeralEndpoint: info.EphemeralEndpoint,
				TimerMillis:       info.TimerMillis,
			}

			if jsonOutput {
				data, err := json.Marshal(result)
				if err != nil {
					return fmt.Errorf("failed to marshal JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), formatInfoText(result))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// formatInfoText formats an InfoResult as aligned human-readable text.
func formatInfoText(r InfoResult) string {
	type field struct {
		label string
		value string
	}

	fields := []field{
		{"Version", r.Version},
		{"Platform", r.Platform},
		{"Send buffer", humanize.IBytes(uint64(r.SendBufferSize))},
		{"Receive buffer", humanize.IBytes(uint64(r.RecvBufferSize))},
		{"Ephemeral endpoint", r.EphemeralEndpoint},
		{"Timer", (time.Duration(r.TimerMillis) * time.Millisecond).String()},
	}

	maxWidth := 0
	for _, f := range fields {
		if len(f.label) > maxWidth {
			maxWidth = len(f.label)
		}
	}

	var sb strings.Builder
	sb.WriteString("\n")
	for _, f := range fields {
		label := infoLabelStyle.Render(fmt.Sprintf("%-*s", maxWidth, f.label))
		fmt.Fprintf(&sb, "  %s : %s\n", label, f.value)
	}
	sb.WriteString("\n")

	return sb.String()
}
