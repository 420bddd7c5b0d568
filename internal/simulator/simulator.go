// Package simulator provides in-memory native engines for the TTS and
// bridge plugins so the mobile variant can run off-device.
package simulator

import (
	"fmt"
	"maps"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/plugin"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Config configures a Simulator.
type Config struct {
	NATSUrl  string
	NATSOpts []nats.Option
	Platform string
	Secret   string
	Version  string

	WordDelay         time.Duration
	StatusBarHeight   uint32
	AuthRedirectURL   string
	Voices            []model.Voice
	Products          []model.Product
	CancelledProducts []string
	Fonts             FontLister
}

// Simulator runs both native plugins.
type Simulator struct {
	TTS    *TTSEngine
	Bridge *BridgeEngine
	Store  *StoreEngine

	ttsPlugin    *plugin.Plugin
	bridgePlugin *plugin.Plugin
}

// Start brings up the TTS and bridge plugins on the bus.
func Start(cfg Config, logger zerolog.Logger) (*Simulator, error) {
	if cfg.Platform == "" {
		cfg.Platform = protocol.PlatformAndroid
	}
	platform := model.Platform(cfg.Platform)
	if !platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.Voices == nil {
		cfg.Voices = DefaultVoices
	}
	if cfg.Products == nil {
		cfg.Products = DefaultProducts
	}
	if cfg.AuthRedirectURL == "" {
		cfg.AuthRedirectURL = "nativebridge://auth/callback"
	}

	s := &Simulator{
		TTS:    NewTTSEngine(cfg.Voices, cfg.WordDelay, logger),
		Bridge: NewBridgeEngine(cfg.AuthRedirectURL, cfg.StatusBarHeight, cfg.Fonts, logger),
		Store:  NewStoreEngine(platform, cfg.Products, cfg.CancelledProducts, logger),
	}

	pcfg := plugin.Config{
		NATSUrl:  cfg.NATSUrl,
		NATSOpts: cfg.NATSOpts,
		Platform: cfg.Platform,
		Secret:   cfg.Secret,
	}

	tts, err := plugin.New(pcfg, protocol.TTSPlugin, cfg.Version, s.TTS.Handlers(), logger)
	if err != nil {
		s.TTS.Close()
		return nil, fmt.Errorf("start tts plugin: %w", err)
	}
	s.ttsPlugin = tts
	s.TTS.Attach(tts)

	handlers := s.Bridge.Handlers()
	maps.Copy(handlers, s.Store.Handlers())
	bridge, err := plugin.New(pcfg, protocol.BridgePlugin, cfg.Version, handlers, logger)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start bridge plugin: %w", err)
	}
	s.bridgePlugin = bridge

	return s, nil
}

// Close stops both plugins and the TTS worker.
func (s *Simulator) Close() {
	s.TTS.Close()
	if s.ttsPlugin != nil {
		s.ttsPlugin.Close()
	}
	if s.bridgePlugin != nil {
		s.bridgePlugin.Close()
	}
}
