package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

func (s *MCPServer) handleGetStatus(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	status, err := s.api.GetStatus(ctx)
	if err != nil {
		return textError("failed to get status: " + err.Error()), nil
	}
	return textJSON(status)
}

func (s *MCPServer) handleListPlugins(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	plugins, err := s.api.GetPlugins(ctx)
	if err != nil {
		return textError("failed to list plugins: " + err.Error()), nil
	}
	return textJSON(plugins.Plugins)
}

func (s *MCPServer) handleCommand(command string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		payload := json.RawMessage("{}")
		if raw, ok := req.GetArguments()["payload"]; ok && raw != nil {
			m, ok := raw.(map[string]any)
			if !ok {
				return textError("payload must be a JSON object"), nil
			}
			data, err := json.Marshal(m)
			if err != nil {
				return textError("failed to marshal payload: " + err.Error()), nil
			}
			payload = data
		}

		result, err := s.api.Invoke(ctx, command, payload)
		if err != nil {
			var ce *CommandError
			if errors.As(err, &ce) {
				return textError(fmt.Sprintf("%s failed (%s): %s", command, ce.Kind, ce.Message)), nil
			}
			return textError(command + " failed: " + err.Error()), nil
		}
		s.logger.Debug().Str("command", command).Msg("command invoked")
		return textResult(string(result)), nil
	}
}

// textResult returns a successful text result.
func textResult(text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: text},
		},
	}
}

// textError returns an error text result.
func textError(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// textJSON marshals v to indented JSON and returns it as a text result.
func textJSON(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return textError("failed to marshal response: " + err.Error()), nil
	}
	return textResult(string(data)), nil
}
