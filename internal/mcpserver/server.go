// Package mcpserver exposes udpkit probing over the Model Context Protocol.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hervehildenbrand/udpkit/internal/clock"
	"github.com/hervehildenbrand/udpkit/internal/export"
	"github.com/hervehildenbrand/udpkit/internal/logging"
	"github.com/hervehildenbrand/udpkit/internal/metrics"
	"github.com/hervehildenbrand/udpkit/internal/probe"
	"github.com/hervehildenbrand/udpkit/internal/socket"
	"github.com/hervehildenbrand/udpkit/pkg/endpoint"
)

// Limits applied to tool arguments.
const (
	maxProbeCount   = 100
	maxProbeTimeout = 10 * time.Second
)

// Server is an MCP server offering udp_probe and platform_info tools.
type Server struct {
	mcp     *server.MCPServer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Stdio transport owns stdout, so loggers must
// write elsewhere.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder passed to every socket.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates the server and registers its tools.
func New(version string, opts ...Option) *Server {
	s := &Server{
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = server.NewMCPServer("udpkit", version, server.WithToolCapabilities(false))

	s.mcp.AddTool(mcp.NewTool("udp_probe",
		mcp.WithDescription("Send sequenced UDP probes to an echo responder and report round-trip times and loss"),
		mcp.WithString("target", mcp.Required(), mcp.Description("Echo responder as a.b.c.d:port")),
		mcp.WithNumber("count", mcp.Description("Number of probes (default 4, max 100)")),
		mcp.WithNumber("interval_ms", mcp.Description("Milliseconds between probes (default 200)")),
		mcp.WithNumber("timeout_ms", mcp.Description("Milliseconds to wait for each reply (default 1000)")),
		mcp.WithNumber("size", mcp.Description("Probe datagram size in bytes (default 64)")),
	), s.handleProbe)

	s.mcp.AddTool(mcp.NewTool("platform_info",
		mcp.WithDescription("Report the socket platform, default buffer sizes and an ephemeral local endpoint"),
	), s.handlePlatformInfo)

	return s
}

// ServeStdio serves MCP requests on stdin and stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) socketOptions() []socket.Option {
	return []socket.Option{
		socket.WithLogger(s.logger),
		socket.WithMetrics(s.metrics),
	}
}

func (s *Server) handleProbe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetStr, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := endpoint.Parse(targetStr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	cfg := probe.DefaultConfig(target)
	cfg.Count = req.GetInt("count", 4)
	cfg.Interval = time.Duration(req.GetInt("interval_ms", 200)) * time.Millisecond
	cfg.Timeout = time.Duration(req.GetInt("timeout_ms", 1000)) * time.Millisecond
	cfg.Size = req.GetInt("size", 64)

	if cfg.Count == 0 || cfg.Count > maxProbeCount {
		return mcp.NewToolResultError(fmt.Sprintf("count must be between 1 and %d", maxProbeCount)), nil
	}
	if cfg.Timeout > maxProbeTimeout {
		return mcp.NewToolResultError(fmt.Sprintf("timeout_ms must not exceed %d", maxProbeTimeout.Milliseconds())), nil
	}
	if err := cfg.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	sock, err := socket.Open(s.socketOptions()...)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to open socket", err), nil
	}
	defer sock.Close()

	if st := sock.Bind(endpoint.Any); st != socket.OK {
		return mcp.NewToolResultErrorFromErr("failed to bind socket", sock.StatusError("bind", st)), nil
	}

	p, err := probe.New(sock, cfg,
		probe.WithLogger(s.logger),
		probe.WithMetrics(s.metrics))
	if err != nil {
		return mcp.NewToolResultErrorFromErr("invalid probe config", err), nil
	}

	s.logger.Info("mcp probe started", logging.KeyRemote, target.String(), logging.KeyCount, cfg.Count)

	sess, err := p.Run(ctx, nil)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("probe failed", err), nil
	}

	return jsonResult(export.Convert(sess))
}

// PlatformInfo is the platform_info tool payload.
type PlatformInfo struct {
	Platform          string `json:"platform"`
	SendBufferSize    uint32 `json:"sendBufferSize"`
	RecvBufferSize    uint32 `json:"recvBufferSize"`
	EphemeralEndpoint string `json:"ephemeralEndpoint"`
	TimerMillis       uint32 `json:"timerMillis"`
}

// GatherPlatformInfo opens and binds a throwaway socket to report what the
// platform assigns.
func GatherPlatformInfo(opts ...socket.Option) (*PlatformInfo, error) {
	sock, err := socket.Open(opts...)
	if err != nil {
		return nil, err
	}
	defer sock.Close()

	if st := sock.Bind(endpoint.Any); st != socket.OK {
		return nil, sock.StatusError("bind", st)
	}

	local, _ := sock.EndPoint()
	send, recv := sock.BufferSizes()

	return &PlatformInfo{
		Platform:          socket.PlatformName(),
		SendBufferSize:    send,
		RecvBufferSize:    recv,
		EphemeralEndpoint: local.String(),
		TimerMillis:       clock.Milliseconds(),
	}, nil
}

func (s *Server) handlePlatformInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := GatherPlatformInfo(s.socketOptions()...)
	if err != nil {
		return mcp.NewToolResultErrorFromErr("failed to query platform", err), nil
	}
	return jsonResult(info)
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
