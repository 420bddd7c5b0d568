package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// DaemonAPI is what the MCP tools need from bridged.
// Implemented by APIClient; tests can provide a mock.
type DaemonAPI interface {
	GetStatus(ctx context.Context) (*protocol.StatusResponse, error)
	GetPlugins(ctx context.Context) (*protocol.PluginsResponse, error)
	GetCommands(ctx context.Context) (*protocol.CommandsResponse, error)
	Invoke(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error)
}

// CommandError is a classified failure reported by bridged.
type CommandError struct {
	Status int
	protocol.ErrorResponse
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// APIClient talks to bridged over its Unix socket HTTP API.
type APIClient struct {
	client *http.Client
}

// NewAPIClient creates an APIClient connected to the daemon's Unix socket.
func NewAPIClient(socketPath string) *APIClient {
	return &APIClient{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					return (&net.Dialer{}).DialContext(ctx, "unix", socketPath)
				},
			},
		},
	}
}

func (c *APIClient) GetStatus(ctx context.Context) (*protocol.StatusResponse, error) {
	var resp protocol.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) GetPlugins(ctx context.Context) (*protocol.PluginsResponse, error) {
	var resp protocol.PluginsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/plugins", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) GetCommands(ctx context.Context) (*protocol.CommandsResponse, error) {
	var resp protocol.CommandsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/commands", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) Invoke(ctx context.Context, command string, payload json.RawMessage) (json.RawMessage, error) {
	var resp protocol.InvokeResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/invoke/"+command, payload, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body []byte, dst any) error {
	req, err := http.NewRequestWithContext(ctx, method, "http://bridged"+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var er protocol.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil && er.Kind != "" {
			return &CommandError{Status: resp.StatusCode, ErrorResponse: er}
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}
