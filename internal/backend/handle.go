package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Handle is a resolved native plugin. It forwards a method name and JSON
// arguments to the plugin and decodes the reply.
type Handle struct {
	plugin  protocol.PluginID
	reg     protocol.Registration
	nc      *nats.Conn
	source  string
	secret  string
	timeout time.Duration
	logger  zerolog.Logger
}

// Plugin returns the plugin this handle reaches.
func (h *Handle) Plugin() protocol.PluginID { return h.plugin }

// Registration returns what the plugin reported when it was resolved.
func (h *Handle) Registration() protocol.Registration { return h.reg }

// Run invokes method with args and decodes the reply data into out. out may
// be nil for methods with a unit result. Transport failures and native error
// replies are NativeInvocationFailed; unreadable replies are DecodeError.
func (h *Handle) Run(ctx context.Context, method string, args, out any) error {
	if args == nil {
		args = model.Empty{}
	}
	payload, err := json.Marshal(args)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.KindInvalidArgument, method, fmt.Errorf("encode arguments: %w", err))
	}

	inv := protocol.Invocation{
		Command: method,
		Payload: payload,
		Source:  h.source,
	}
	if err := protocol.SignInvocation(&inv, h.secret); err != nil {
		return bridgeerr.Wrap(bridgeerr.KindNativeInvocationFailed, method, fmt.Errorf("sign invocation: %w", err))
	}
	data, err := json.Marshal(inv)
	if err != nil {
		return bridgeerr.Wrap(bridgeerr.KindNativeInvocationFailed, method, err)
	}

	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := h.nc.RequestWithContext(ctx, protocol.SubjectInvoke(h.plugin.Name), data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) {
			return bridgeerr.New(bridgeerr.KindNativeInvocationFailed, method, "plugin %s is not responding", h.plugin.Name)
		}
		return bridgeerr.Wrap(bridgeerr.KindNativeInvocationFailed, method, err)
	}
	h.logger.Debug().Str("command", method).Dur("took", time.Since(start)).Msg("native call returned")

	var reply protocol.Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return bridgeerr.Wrap(bridgeerr.KindDecode, method, fmt.Errorf("reply envelope: %w", err))
	}
	if reply.Error != "" {
		return bridgeerr.New(bridgeerr.KindNativeInvocationFailed, method, "%s", reply.Error)
	}
	if out == nil {
		return nil
	}
	if len(reply.Data) == 0 {
		return bridgeerr.New(bridgeerr.KindDecode, method, "reply carries no data")
	}
	if err := json.Unmarshal(reply.Data, out); err != nil {
		return bridgeerr.Wrap(bridgeerr.KindDecode, method, err)
	}
	return nil
}
