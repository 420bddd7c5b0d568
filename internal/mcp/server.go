package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// MCPServer exposes the bridge commands of a running bridged to AI
// assistants via MCP, one tool per command.
type MCPServer struct {
	api     DaemonAPI
	version string
	logger  zerolog.Logger
}

// New creates an MCPServer. Call Run() to start serving on stdio.
func New(cfg Config, version string, logger zerolog.Logger) *MCPServer {
	return &MCPServer{
		api:     NewAPIClient(cfg.Daemon.Socket),
		version: version,
		logger:  logger.With().Str("component", "mcp").Logger(),
	}
}

// SetDaemonAPI overrides the daemon API client. Intended for testing with a mock.
func (s *MCPServer) SetDaemonAPI(api DaemonAPI) {
	s.api = api
}

// Run reads the command table from bridged, registers the tools, and
// serves on stdio. It blocks until stdin is closed or ctx is cancelled.
func (s *MCPServer) Run(ctx context.Context) error {
	srv, err := s.build(ctx)
	if err != nil {
		return err
	}

	stdio := mcpserver.NewStdioServer(srv)
	stdio.SetErrorLogger(log.New(os.Stderr, "", log.LstdFlags))

	s.logger.Info().Msg("MCP server starting on stdio")
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

func (s *MCPServer) build(ctx context.Context) (*mcpserver.MCPServer, error) {
	cmds, err := s.api.GetCommands(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bridge commands: %w", err)
	}

	srv := mcpserver.NewMCPServer(
		"nativebridge",
		s.version,
		mcpserver.WithRecovery(),
	)
	s.registerTools(srv, cmds.Commands)
	return srv, nil
}

func (s *MCPServer) registerTools(srv *mcpserver.MCPServer, commands []protocol.CommandInfo) {
	srv.AddTool(
		mcplib.NewTool("get_bridge_status",
			mcplib.WithDescription("Get bridged status: backend variant, uptime, plugin count and event counters"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleGetStatus,
	)

	srv.AddTool(
		mcplib.NewTool("list_native_plugins",
			mcplib.WithDescription("List the native plugins bridged has seen, with their platform key, heartbeat and call counters"),
			mcplib.WithReadOnlyHintAnnotation(true),
		),
		s.handleListPlugins,
	)

	for _, c := range commands {
		srv.AddTool(commandTool(c), s.handleCommand(c.Name))
	}
	s.logger.Debug().Int("commands", len(commands)).Msg("bridge command tools registered")
}

// commandTool describes one bridge command as an MCP tool.
func commandTool(c protocol.CommandInfo) mcplib.Tool {
	desc := fmt.Sprintf("Run the %s command on the %s plugin. Input: %s. Output: %s.", c.Name, c.Plugin, c.Input, c.Output)
	opts := []mcplib.ToolOption{mcplib.WithDescription(desc)}
	if c.Input != "unit" {
		opts = append(opts, mcplib.WithObject("payload",
			mcplib.Required(),
			mcplib.Description("JSON object of type "+c.Input+" with camelCase field names"),
		))
	}
	if strings.HasPrefix(c.Name, "get_") {
		opts = append(opts, mcplib.WithReadOnlyHintAnnotation(true))
	}
	return mcplib.NewTool(c.Name, opts...)
}
