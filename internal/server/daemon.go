package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/internal/api"
	"github.com/sekia-ai/nativebridge/internal/backend"
	"github.com/sekia-ai/nativebridge/internal/dispatch"
	"github.com/sekia-ai/nativebridge/internal/events"
	"github.com/sekia-ai/nativebridge/internal/fonts"
	"github.com/sekia-ai/nativebridge/internal/natsserver"
	"github.com/sekia-ai/nativebridge/internal/registry"
	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/model"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// Opener builds the backend variant. backend.Open is the default.
type Opener func(ctx context.Context, env backend.Env) (backend.Backend, error)

// Option customizes a Daemon.
type Option func(*Daemon)

// WithOpener replaces the compiled-in backend selection.
func WithOpener(open Opener) Option {
	return func(d *Daemon) { d.open = open }
}

// Daemon is the bridged process.
type Daemon struct {
	cfg       Config
	logger    zerolog.Logger
	open      Opener
	nats      *natsserver.Server
	nc        *nats.Conn
	registry  *registry.Registry
	backend   backend.Backend
	bus       *api.EventBus
	forwarder *events.Forwarder
	stopTTS   backend.StopFunc
	apiServer *api.Server
	startedAt time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	cancel    context.CancelFunc
}

// NewDaemon creates a Daemon from config.
func NewDaemon(cfg Config, logger zerolog.Logger, opts ...Option) *Daemon {
	d := &Daemon{
		cfg:    cfg,
		logger: logger,
		open:   backend.Open,
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run starts all subsystems and blocks until a signal is received or Stop is called.
func (d *Daemon) Run() error {
	d.startedAt = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	if err := d.start(ctx); err != nil {
		d.shutdown()
		return err
	}

	apiErrCh := make(chan error, 1)
	go func() {
		apiErrCh <- d.apiServer.Start()
	}()

	d.logger.Info().
		Str("socket", d.cfg.Server.Socket).
		Str("backend", d.backend.Variant()).
		Msg("bridged started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		d.logger.Info().Str("signal", sig.String()).Msg("shutting down")
	case <-d.stopCh:
		d.logger.Info().Msg("stop requested, shutting down")
	case err := <-apiErrCh:
		if err != nil {
			d.logger.Error().Err(err).Msg("API server error")
			runErr = fmt.Errorf("api server: %w", err)
		}
	}

	d.shutdown()
	return runErr
}

func (d *Daemon) start(ctx context.Context) error {
	// 1. Bus: embedded unless an external URL is configured.
	if d.cfg.NATS.URL != "" {
		opts := []nats.Option{nats.Name("bridged")}
		if d.cfg.NATS.Token != "" {
			opts = append(opts, nats.Token(d.cfg.NATS.Token))
		}
		nc, err := nats.Connect(d.cfg.NATS.URL, opts...)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		d.nc = nc
	} else {
		ns, err := natsserver.New(natsserver.Config{
			Host:  d.cfg.NATS.Host,
			Port:  d.cfg.NATS.Port,
			Token: d.cfg.NATS.Token,
		}, d.logger)
		if err != nil {
			return fmt.Errorf("start nats: %w", err)
		}
		d.nats = ns
		d.nc = ns.Conn()
	}

	// 2. Plugin registry.
	reg, err := registry.New(d.nc, d.logger)
	if err != nil {
		return fmt.Errorf("start registry: %w", err)
	}
	d.registry = reg

	// 3. Backend variant.
	var fontLister backend.FontLister
	if dirs := d.fontDirs(); len(dirs) > 0 {
		catalog := fonts.New(dirs, d.logger)
		if d.cfg.Fonts.Watch {
			if err := catalog.Watch(ctx); err != nil {
				d.logger.Warn().Err(err).Msg("font watcher disabled")
			}
		}
		fontLister = catalog
	}
	b, err := d.open(ctx, backend.Env{
		NATS:           d.nc,
		Platform:       d.cfg.Bridge.Platform,
		Source:         "bridged",
		Secret:         d.cfg.Security.CommandSecret,
		IAPPublicKey:   d.cfg.IAP.PublicKey,
		InvokeTimeout:  d.cfg.Bridge.InvokeTimeout,
		ResolveTimeout: d.cfg.Bridge.ResolveTimeout,
		Fonts:          fontLister,
		Logger:         d.logger,
	})
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	d.backend = b
	if resolved, ok := b.(interface {
		Registrations() []protocol.Registration
	}); ok {
		for _, r := range resolved.Registrations() {
			reg.Record(r)
		}
	}
	disp := dispatch.New(b, d.logger)

	// 4. TTS events into the API event bus.
	d.bus = api.NewEventBus(d.cfg.Events.RingSize)
	d.forwarder = events.New(d.publishEvent, events.Options{Logger: d.logger})
	stop, err := disp.ListenTTSEvents(ctx, d.forwarder.Push)
	switch {
	case err == nil:
		d.stopTTS = stop
	case errors.Is(err, bridgeerr.ErrUnsupportedPlatform):
		d.logger.Info().Str("backend", b.Variant()).Msg("backend has no TTS events")
	default:
		return fmt.Errorf("listen tts events: %w", err)
	}

	// 5. Control API.
	d.apiServer = api.New(d.cfg.Server.Socket, api.Deps{
		Dispatcher: disp,
		Plugins:    reg,
		Bus:        d.bus,
		Events:     d.forwarder,
	}, d.startedAt, d.logger)
	return nil
}

func (d *Daemon) publishEvent(ev model.TTSMessageEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	d.bus.Publish(data)
	return nil
}

// fontDirs returns the configured font directories, falling back to the OS
// defaults on desktop builds.
func (d *Daemon) fontDirs() []string {
	if len(d.cfg.Fonts.Dirs) > 0 {
		return d.cfg.Fonts.Dirs
	}
	return fonts.DefaultDirs()
}

// Stop signals the daemon to shut down. Safe to call from another goroutine
// and more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

func (d *Daemon) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if d.apiServer != nil {
		d.apiServer.Shutdown(ctx)
	}
	if d.stopTTS != nil {
		if err := d.stopTTS(); err != nil {
			d.logger.Warn().Err(err).Msg("stop tts events")
		}
	}
	if d.forwarder != nil {
		d.forwarder.Close()
	}
	if d.backend != nil {
		d.backend.Close()
	}
	if d.cancel != nil {
		d.cancel()
	}
	if d.registry != nil {
		d.registry.Close()
	}
	if d.nats != nil {
		d.nats.Shutdown()
	} else if d.nc != nil {
		d.nc.Drain()
	}
}
