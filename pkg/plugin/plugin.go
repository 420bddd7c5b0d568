// Package plugin is the native side of the nativebridge boundary. A plugin
// connects to NATS, registers itself, answers resolution requests for its
// platform key, serves invocations in the order they arrive and publishes
// numbered events.
package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Handler answers one native method. The returned value is JSON-encoded into
// the reply; a non-nil error becomes the reply's error string.
type Handler func(ctx context.Context, payload json.RawMessage) (any, error)

// Typed adapts a function over model types into a Handler. The payload is
// decoded strictly and validated when In implements model.Validator.
func Typed[In, Out any](fn func(context.Context, In) (Out, error)) Handler {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		in, err := model.Decode[In](payload)
		if err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		if v, ok := any(in).(model.Validator); ok {
			if err := v.Validate(); err != nil {
				return nil, err
			}
		}
		return fn(ctx, in)
	}
}

// Config holds connection options for a plugin.
type Config struct {
	NATSUrl  string
	NATSOpts []nats.Option
	Platform string
	// Secret, when set, is required to have signed every invocation.
	Secret string
	// HeartbeatInterval defaults to 30s.
	HeartbeatInterval time.Duration
}

// Plugin is a running native plugin.
type Plugin struct {
	ID       protocol.PluginID
	Version  string
	Platform string
	Key      string

	handlers map[string]Handler
	secret   string
	nc       *nats.Conn
	logger   zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	subs     []*nats.Subscription

	emitMu sync.Mutex
	seq    uint64

	invocations    atomic.Int64
	eventsEmitted  atomic.Int64
	errors         atomic.Int64
	lastInvocation atomic.Value // stores time.Time
}

// New connects to NATS, starts serving handlers, registers and starts
// heartbeating.
func New(cfg Config, id protocol.PluginID, version string, handlers map[string]Handler, logger zerolog.Logger) (*Plugin, error) {
	key, err := id.Key(cfg.Platform)
	if err != nil {
		return nil, err
	}
	pluginLogger := logger.With().Str("plugin", id.Name).Logger()

	resilienceOpts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				pluginLogger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			pluginLogger.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			pluginLogger.Warn().Msg("NATS connection closed")
		}),
	}

	opts := append(resilienceOpts, cfg.NATSOpts...)
	nc, err := nats.Connect(cfg.NATSUrl, opts...)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Plugin{
		ID:       id,
		Version:  version,
		Platform: cfg.Platform,
		Key:      key,
		handlers: handlers,
		secret:   cfg.Secret,
		nc:       nc,
		logger:   pluginLogger,
		ctx:      ctx,
		cancel:   cancel,
	}
	p.lastInvocation.Store(time.Time{})

	if err := p.subscribe(); err != nil {
		p.Close()
		return nil, err
	}
	if err := p.register(); err != nil {
		p.Close()
		return nil, err
	}
	// Subscriptions must be live on the server before callers try to resolve.
	if err := nc.Flush(); err != nil {
		p.Close()
		return nil, fmt.Errorf("flush: %w", err)
	}

	interval := cfg.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go p.heartbeatLoop(ctx, interval)

	pluginLogger.Info().Str("key", key).Int("commands", len(handlers)).Msg("plugin started")
	return p, nil
}

func (p *Plugin) subscribe() error {
	invSub, err := p.nc.Subscribe(protocol.SubjectInvoke(p.ID.Name), p.handleInvocation)
	if err != nil {
		return fmt.Errorf("subscribe invocations: %w", err)
	}
	p.subs = append(p.subs, invSub)

	resSub, err := p.nc.Subscribe(protocol.SubjectResolve(p.Key), p.handleResolve)
	if err != nil {
		return fmt.Errorf("subscribe resolution: %w", err)
	}
	p.subs = append(p.subs, resSub)
	return nil
}

func (p *Plugin) registration() protocol.Registration {
	return protocol.Registration{
		Name:     p.ID.Name,
		Version:  p.Version,
		Platform: p.Platform,
		Key:      p.Key,
		Commands: p.Commands(),
	}
}

func (p *Plugin) register() error {
	data, err := json.Marshal(p.registration())
	if err != nil {
		return err
	}
	return p.nc.Publish(protocol.SubjectRegistry, data)
}

func (p *Plugin) handleResolve(msg *nats.Msg) {
	data, err := json.Marshal(p.registration())
	if err != nil {
		p.logger.Error().Err(err).Msg("marshal registration")
		return
	}
	if err := msg.Respond(data); err != nil {
		p.logger.Error().Err(err).Msg("respond to resolution")
	}
}

// handleInvocation runs on the subscription's single delivery goroutine, so
// invocations are executed one at a time in arrival order.
func (p *Plugin) handleInvocation(msg *nats.Msg) {
	var inv protocol.Invocation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		p.logger.Error().Err(err).Msg("bad invocation")
		p.respond(msg, nil, fmt.Errorf("bad invocation: %w", err))
		return
	}

	p.invocations.Add(1)
	p.lastInvocation.Store(time.Now())

	if !protocol.VerifyInvocation(&inv, p.secret) {
		p.logger.Warn().Str("command", inv.Command).Str("source", inv.Source).Msg("rejected invocation with invalid signature")
		p.respond(msg, nil, errors.New("invalid invocation signature"))
		return
	}

	h, ok := p.handlers[inv.Command]
	if !ok {
		p.respond(msg, nil, fmt.Errorf("method %q not implemented", inv.Command))
		return
	}

	p.logger.Debug().Str("command", inv.Command).Str("source", inv.Source).Msg("invocation received")
	result, err := h(p.ctx, inv.Payload)
	p.respond(msg, result, err)
}

func (p *Plugin) respond(msg *nats.Msg, result any, herr error) {
	var reply protocol.Reply
	if herr != nil {
		p.errors.Add(1)
		reply.Error = herr.Error()
	} else {
		if result == nil {
			result = model.Empty{}
		}
		data, err := json.Marshal(result)
		if err != nil {
			p.errors.Add(1)
			reply.Error = fmt.Sprintf("encode result: %v", err)
		} else {
			reply.Data = data
		}
	}
	data, err := json.Marshal(reply)
	if err != nil {
		p.logger.Error().Err(err).Msg("marshal reply")
		return
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(data); err != nil {
		p.logger.Error().Err(err).Msg("send reply")
	}
}

// Emit publishes an event on the plugin's event subject. Events from one
// plugin carry consecutive sequence numbers in publish order.
func (p *Plugin) Emit(eventType string, payload any) error {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()

	ev, err := protocol.NewEvent(eventType, p.ID.Name, p.seq+1, payload)
	if err != nil {
		return fmt.Errorf("build event: %w", err)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(protocol.SubjectEvents(p.ID.Name), data); err != nil {
		p.errors.Add(1)
		return fmt.Errorf("publish event: %w", err)
	}
	p.seq++
	p.eventsEmitted.Add(1)
	return nil
}

func (p *Plugin) heartbeatLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.sendHeartbeat()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sendHeartbeat()
		}
	}
}

func (p *Plugin) sendHeartbeat() {
	hb := protocol.Heartbeat{
		Name:              p.ID.Name,
		Status:            "running",
		LastInvocation:    p.lastInvocation.Load().(time.Time),
		InvocationsServed: p.invocations.Load(),
		EventsEmitted:     p.eventsEmitted.Load(),
		Errors:            p.errors.Load(),
	}
	data, _ := json.Marshal(hb)
	if err := p.nc.Publish(protocol.SubjectHeartbeat(p.ID.Name), data); err != nil {
		p.logger.Error().Err(err).Msg("failed to send heartbeat")
	}
}

// Commands returns the served method names, sorted.
func (p *Plugin) Commands() []string {
	names := make([]string, 0, len(p.handlers))
	for name := range p.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Conn returns the underlying NATS connection.
func (p *Plugin) Conn() *nats.Conn { return p.nc }

// Close stops heartbeating and disconnects.
func (p *Plugin) Close() {
	if p.cancel != nil {
		p.cancel()
	}
	for _, sub := range p.subs {
		sub.Unsubscribe()
	}
	p.nc.Drain()
}
