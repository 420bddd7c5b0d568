package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// ErrPluginNotResolved is returned when a native plugin cannot be found at
// startup. It is fatal for the mobile variant.
var ErrPluginNotResolved = errors.New("native plugin not resolved")

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Source        string
	Secret        string
	InvokeTimeout time.Duration
	// Timeout bounds the whole resolution, including waiting for a plugin
	// that has not subscribed yet.
	Timeout time.Duration
	Logger  zerolog.Logger
}

// Resolve looks up plugin by its platform key and returns a Handle to it.
func Resolve(ctx context.Context, nc *nats.Conn, plugin protocol.PluginID, platform string, opts ResolveOptions) (*Handle, error) {
	key, err := plugin.Key(platform)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPluginNotResolved, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := opts.Logger.With().Str("component", "backend").Str("plugin", plugin.Name).Logger()

	reg, err := requestRegistration(ctx, nc, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (%s): %v", ErrPluginNotResolved, plugin.Name, key, err)
	}
	if reg.Name != plugin.Name || reg.Key != key {
		return nil, fmt.Errorf("%w: %s answered as %s (%s)", ErrPluginNotResolved, key, reg.Name, reg.Key)
	}
	logger.Info().Str("key", key).Str("version", reg.Version).Int("commands", len(reg.Commands)).Msg("native plugin resolved")

	invokeTimeout := opts.InvokeTimeout
	if invokeTimeout <= 0 {
		invokeTimeout = DefaultInvokeTimeout
	}
	return &Handle{
		plugin:  plugin,
		reg:     reg,
		nc:      nc,
		source:  opts.Source,
		secret:  opts.Secret,
		timeout: invokeTimeout,
		logger:  logger,
	}, nil
}

// requestRegistration asks key for its registration, waiting for the plugin
// to come up while ctx allows.
func requestRegistration(ctx context.Context, nc *nats.Conn, key string) (protocol.Registration, error) {
	for {
		msg, err := nc.RequestWithContext(ctx, protocol.SubjectResolve(key), nil)
		if err == nil {
			var reg protocol.Registration
			if err := json.Unmarshal(msg.Data, &reg); err != nil {
				return protocol.Registration{}, fmt.Errorf("bad registration reply: %w", err)
			}
			return reg, nil
		}
		if !errors.Is(err, nats.ErrNoResponders) {
			return protocol.Registration{}, err
		}
		select {
		case <-ctx.Done():
			return protocol.Registration{}, fmt.Errorf("no plugin answered: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond):
		}
	}
}
