package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sekia-ai/nativebridge/internal/events"
	"github.com/sekia-ai/nativebridge/pkg/bridgeerr"
	"github.com/sekia-ai/nativebridge/pkg/protocol"
)

// maxPayload bounds a command payload read from the socket.
const maxPayload = 1 << 20

// Dispatcher runs bridge commands.
type Dispatcher interface {
	Invoke(ctx context.Context, name string, payload json.RawMessage) (any, error)
	Commands() []protocol.CommandInfo
	Variant() string
}

// PluginLister reports native plugins seen on the bus.
type PluginLister interface {
	Plugins() []protocol.PluginInfo
	Count() int
}

// EventStats reports event delivery counters.
type EventStats interface {
	Stats() events.Stats
}

// Deps are the components the API serves from. Events may be nil when the
// backend has no event stream.
type Deps struct {
	Dispatcher Dispatcher
	Plugins    PluginLister
	Bus        *EventBus
	Events     EventStats
}

// Server serves the bridged control API over a Unix socket.
type Server struct {
	socketPath string
	deps       Deps
	bus        *EventBus
	startedAt  time.Time
	httpServer *http.Server
	closing    chan struct{}
	closeOnce  sync.Once
	logger     zerolog.Logger
}

// New creates an API server.
func New(socketPath string, deps Deps, startedAt time.Time, logger zerolog.Logger) *Server {
	bus := deps.Bus
	if bus == nil {
		bus = NewEventBus(DefaultRingSize)
	}
	s := &Server{
		socketPath: socketPath,
		deps:       deps,
		bus:        bus,
		startedAt:  startedAt,
		closing:    make(chan struct{}),
		logger:     logger.With().Str("component", "api").Logger(),
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/plugins", s.handlePlugins)
	mux.HandleFunc("GET /api/v1/commands", s.handleCommands)
	mux.HandleFunc("POST /api/v1/invoke/{command}", s.handleInvoke)
	mux.HandleFunc("GET /api/v1/events", s.handleEventStream)
	return mux
}

// Start begins listening on the Unix socket. Blocks until Shutdown.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0o700); err != nil {
		return err
	}
	os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	os.Chmod(s.socketPath, 0600)

	s.logger.Info().Str("socket", s.socketPath).Msg("API server listening")
	if err := s.httpServer.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open event streams and gracefully stops the API server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := protocol.StatusResponse{
		Status:      "ok",
		Uptime:      time.Since(s.startedAt).Truncate(time.Second).String(),
		Backend:     s.deps.Dispatcher.Variant(),
		NATSRunning: s.deps.Plugins != nil,
		StartedAt:   s.startedAt,
	}
	if s.deps.Plugins != nil {
		resp.PluginCount = s.deps.Plugins.Count()
	}
	if s.deps.Events != nil {
		st := s.deps.Events.Stats()
		resp.EventsSeen = st.Received
		resp.EventErrors = st.Failed + st.Missed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePlugins(w http.ResponseWriter, r *http.Request) {
	plugins := []protocol.PluginInfo{}
	if s.deps.Plugins != nil {
		plugins = append(plugins, s.deps.Plugins.Plugins()...)
	}
	writeJSON(w, http.StatusOK, protocol.PluginsResponse{Plugins: plugins})
}

func (s *Server) handleCommands(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.CommandsResponse{Commands: s.deps.Dispatcher.Commands()})
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("command")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayload))
	if err != nil {
		s.writeError(w, bridgeerr.Wrap(bridgeerr.KindInvalidArgument, name, err))
		return
	}

	out, err := s.deps.Dispatcher.Invoke(r.Context(), name, body)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := json.Marshal(out)
	if err != nil {
		s.writeError(w, bridgeerr.Wrap(bridgeerr.KindDecode, name, err))
		return
	}
	writeJSON(w, http.StatusOK, protocol.InvokeResponse{Command: name, Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := bridgeerr.KindOf(err)
	resp := protocol.ErrorResponse{Kind: kind.Code(), Message: err.Error()}
	var be *bridgeerr.Error
	if errors.As(err, &be) {
		resp.Command = be.Command
	}
	if kind == bridgeerr.KindUnknown {
		s.logger.Error().Err(err).Msg("unclassified command failure")
	}
	writeJSON(w, kind.HTTPStatus(), resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
