package protocol

import (
	"encoding/json"
	"time"
)

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Backend     string    `json:"backend"`
	NATSRunning bool      `json:"nats_running"`
	StartedAt   time.Time `json:"started_at"`
	PluginCount int       `json:"plugin_count"`
	EventsSeen  int64     `json:"events_seen"`
	EventErrors int64     `json:"event_errors"`
}

// PluginInfo is one entry in the GET /api/v1/plugins response.
type PluginInfo struct {
	Name              string    `json:"name"`
	Version           string    `json:"version"`
	Platform          string    `json:"platform"`
	Key               string    `json:"key"`
	Status            string    `json:"status"`
	Commands          []string  `json:"commands"`
	RegisteredAt      time.Time `json:"registered_at"`
	LastHeartbeat     time.Time `json:"last_heartbeat"`
	InvocationsServed int64     `json:"invocations_served"`
	EventsEmitted     int64     `json:"events_emitted"`
	Errors            int64     `json:"errors"`
}

// PluginsResponse is returned by GET /api/v1/plugins.
type PluginsResponse struct {
	Plugins []PluginInfo `json:"plugins"`
}

// CommandInfo describes one command of the build-time command table.
type CommandInfo struct {
	Name   string `json:"name"`
	Plugin string `json:"plugin"`
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CommandsResponse is returned by GET /api/v1/commands.
type CommandsResponse struct {
	Commands []CommandInfo `json:"commands"`
}

// InvokeResponse is returned by POST /api/v1/invoke/{command} on success.
type InvokeResponse struct {
	Command string          `json:"command"`
	Result  json.RawMessage `json:"result"`
}

// ErrorResponse is returned by the control API on failure. Kind is one of
// the bridgeerr wire codes.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}
