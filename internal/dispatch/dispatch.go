// Package dispatch is the single entry point for bridge commands. It looks a
// command up in the build-time table, decodes and validates its payload, and
// forwards it to the one backend variant held for the process lifetime.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Dispatcher routes commands to a backend. It holds no state between calls
// and is safe for concurrent use.
type Dispatcher struct {
	backend  backend.Backend
	commands map[string]command
	logger   zerolog.Logger
}

// New returns a Dispatcher over b.
func New(b backend.Backend, logger zerolog.Logger) *Dispatcher {
	commands := make(map[string]command, len(table))
	for _, c := range table {
		commands[c.info.Name] = c
	}
	return &Dispatcher{
		backend:  b,
		commands: commands,
		logger:   logger.With().Str("component", "dispatch").Logger(),
	}
}

// Invoke runs the named command with a JSON payload. An empty payload is an
// empty object. The result is the command's declared output type.
func (d *Dispatcher) Invoke(ctx context.Context, name string, payload json.RawMessage) (any, error) {
	c, ok := d.commands[name]
	if !ok {
		return nil, bridgeerr.New(bridgeerr.KindUnknownCommand, name, "not part of this build")
	}

	start := time.Now()
	out, err := c.run(ctx, d.backend, payload)
	ev := d.logger.Debug().Str("command", name).Dur("took", time.Since(start))
	if err != nil {
		ev.Str("kind", bridgeerr.KindOf(err).Code()).Err(err).Msg("command failed")
		return nil, err
	}
	ev.Msg("command done")
	return out, nil
}

// ListenTTSEvents subscribes sink to the backend's TTS event stream.
func (d *Dispatcher) ListenTTSEvents(ctx context.Context, sink func([]byte)) (backend.StopFunc, error) {
	stop, err := d.backend.ListenTTSEvents(ctx, sink)
	if err != nil {
		return nil, bridgeerr.WithCommand(err, protocol.CmdRegisterListener)
	}
	return stop, nil
}

// Commands lists the command table in declaration order.
func (d *Dispatcher) Commands() []protocol.CommandInfo {
	infos := make([]protocol.CommandInfo, len(table))
	for i, c := range table {
		infos[i] = c.info
	}
	return infos
}

// Variant names the backend variant in use.
func (d *Dispatcher) Variant() string { return d.backend.Variant() }
