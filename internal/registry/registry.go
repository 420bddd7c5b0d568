// Package registry tracks the native plugins that announce themselves on the
// bus and keeps their latest heartbeat counters.
package registry

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

type pluginState struct {
	Registration  protocol.Registration
	RegisteredAt  time.Time
	LastHeartbeat protocol.Heartbeat
	LastSeen      time.Time
}

// Registry tracks connected native plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*pluginState
	logger  zerolog.Logger
	subs    []*nats.Subscription
}

// New creates a Registry and subscribes to the registry and heartbeat subjects.
func New(nc *nats.Conn, logger zerolog.Logger) (*Registry, error) {
	r := &Registry{
		plugins: make(map[string]*pluginState),
		logger:  logger.With().Str("component", "registry").Logger(),
	}

	regSub, err := nc.Subscribe(protocol.SubjectRegistry, r.handleRegistration)
	if err != nil {
		return nil, err
	}
	hbSub, err := nc.Subscribe(protocol.SubjectHeartbeat("*"), r.handleHeartbeat)
	if err != nil {
		regSub.Unsubscribe()
		return nil, err
	}
	r.subs = []*nats.Subscription{regSub, hbSub}

	r.logger.Info().Msg("plugin registry started")
	return r, nil
}

func (r *Registry) handleRegistration(msg *nats.Msg) {
	var reg protocol.Registration
	if err := json.Unmarshal(msg.Data, &reg); err != nil {
		r.logger.Error().Err(err).Msg("bad registration message")
		return
	}
	r.Record(reg)
}

// Record stores reg as the latest registration of its plugin. Resolution
// replies are recorded too, so a plugin that started before the registry is
// still listed.
func (r *Registry) Record(reg protocol.Registration) {
	now := time.Now()
	r.mu.Lock()
	if existing, ok := r.plugins[reg.Name]; ok {
		existing.Registration = reg
		existing.LastSeen = now
	} else {
		r.plugins[reg.Name] = &pluginState{
			Registration: reg,
			RegisteredAt: now,
			LastSeen:     now,
		}
	}
	r.mu.Unlock()
	r.logger.Info().Str("plugin", reg.Name).Str("key", reg.Key).Str("version", reg.Version).Msg("plugin registered")
}

func (r *Registry) handleHeartbeat(msg *nats.Msg) {
	var hb protocol.Heartbeat
	if err := json.Unmarshal(msg.Data, &hb); err != nil {
		r.logger.Error().Err(err).Msg("bad heartbeat message")
		return
	}
	now := time.Now()
	r.mu.Lock()
	if state, ok := r.plugins[hb.Name]; ok {
		state.LastHeartbeat = hb
		state.LastSeen = now
	} else {
		r.plugins[hb.Name] = &pluginState{
			Registration:  protocol.Registration{Name: hb.Name},
			RegisteredAt:  now,
			LastHeartbeat: hb,
			LastSeen:      now,
		}
	}
	r.mu.Unlock()
}

func (s *pluginState) info() protocol.PluginInfo {
	status := "unknown"
	if s.LastHeartbeat.Status != "" {
		status = s.LastHeartbeat.Status
	}
	return protocol.PluginInfo{
		Name:              s.Registration.Name,
		Version:           s.Registration.Version,
		Platform:          s.Registration.Platform,
		Key:               s.Registration.Key,
		Status:            status,
		Commands:          s.Registration.Commands,
		RegisteredAt:      s.RegisteredAt,
		LastHeartbeat:     s.LastSeen,
		InvocationsServed: s.LastHeartbeat.InvocationsServed,
		EventsEmitted:     s.LastHeartbeat.EventsEmitted,
		Errors:            s.LastHeartbeat.Errors,
	}
}

// Plugins returns a snapshot of all known plugins sorted by name.
func (r *Registry) Plugins() []protocol.PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]protocol.PluginInfo, 0, len(r.plugins))
	for _, s := range r.plugins {
		result = append(result, s.info())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Lookup returns the named plugin, if known.
func (r *Registry) Lookup(name string) (protocol.PluginInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.plugins[name]
	if !ok {
		return protocol.PluginInfo{}, false
	}
	return s.info(), true
}

// Count returns the number of known plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Close unsubscribes from NATS.
func (r *Registry) Close() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
}
