// Package devtools exposes a registry to external inspectors: a JSON
// HTTP surface for snapshots and state edits, and a websocket stream of
// mutation and action events. It is glue over the store API; nothing
// here participates in mutation semantics.
package devtools

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/strata-dev/strata"
)

// Config configures the devtools server.
type Config struct {
	// PingInterval is the websocket keepalive interval.
	PingInterval time.Duration

	// SendBuffer is the per-client outbound frame buffer. A client whose
	// buffer fills is dropped; the mutating goroutine never blocks on a
	// slow inspector.
	SendBuffer int

	// MaxPatchBytes caps inspector patch bodies.
	MaxPatchBytes int64
}

// DefaultConfig returns the default devtools configuration.
func DefaultConfig() Config {
	return Config{
		PingInterval:  30 * time.Second,
		SendBuffer:    64,
		MaxPatchBytes: 1 << 20,
	}
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) ServerOption {
	return func(s *Server) { s.cfg = cfg }
}

// WithServerLogger sets the server logger. Defaults to the registry
// logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// Server streams registry activity to inspector clients. It installs
// itself as a plugin on the registry, so stores bound after creation are
// observed too.
type Server struct {
	reg    *strata.Registry
	cfg    Config
	logger *slog.Logger

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

// NewServer attaches a devtools server to reg.
func NewServer(reg *strata.Registry, opts ...ServerOption) (*Server, error) {
	s := &Server{
		reg:     reg,
		cfg:     DefaultConfig(),
		logger:  reg.Logger(),
		clients: make(map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := reg.UsePlugin(s); err != nil {
		return nil, err
	}
	// Closing the registry tears the stream down with it.
	reg.Scope().OnCleanup(s.Close)
	return s, nil
}

// Close disconnects every inspector client and stops accepting new
// websocket connections. Idempotent.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// Install implements strata.Plugin: broadcast every mutation and action
// of the store.
func (s *Server) Install(pc strata.PluginContext) error {
	h := pc.Store

	h.OnMutation(func(m strata.Mutation) {
		state, err := h.StateJSON()
		if err != nil {
			s.logger.Warn("devtools: snapshot failed", "store", h.ID(), "error", err)
			return
		}
		mut := m
		s.broadcast(Frame{
			Type:     FrameMutation,
			Store:    h.ID(),
			Mutation: &mut,
			State:    state,
		})
	})

	h.OnAction(func(ev *strata.ActionEvent) {
		start := time.Now()
		ev.After(func() {
			s.broadcast(Frame{
				Type:  FrameAction,
				Store: h.ID(),
				Action: &ActionInfo{
					Name:       ev.Name,
					Status:     "success",
					DurationMS: float64(time.Since(start).Microseconds()) / 1000,
				},
			})
		})
		ev.OnError(func(err error) {
			s.broadcast(Frame{
				Type:  FrameAction,
				Store: h.ID(),
				Action: &ActionInfo{
					Name:       ev.Name,
					Status:     "error",
					Error:      err.Error(),
					DurationMS: float64(time.Since(start).Microseconds()) / 1000,
				},
			})
		})
	})

	return nil
}

// Handler returns the HTTP surface: store snapshots, inspector edits,
// the websocket stream, and Prometheus metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/stores", s.handleStores)
	r.Get("/stores/{id}", s.handleStore)
	r.Post("/stores/{id}/patch", s.handlePatch)
	r.Post("/stores/{id}/reset", s.handleReset)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleStores(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	h, ok := s.reg.Handle(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	state, err := h.StateJSON()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, StoreState{ID: h.ID(), State: state})
}

func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	h, ok := s.reg.Handle(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxPatchBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if err := h.PatchJSON(body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	h, ok := s.reg.Handle(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if err := h.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "devtools closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("devtools: upgrade failed", "error", err)
		return
	}

	c := s.addClient(conn)
	if c == nil {
		return
	}
	s.logger.Debug("devtools: client connected", "client", c.id)

	// Full snapshot first, then the live stream.
	c.enqueue(Frame{Type: FrameInit, Stores: s.snapshot()})

	go c.writeLoop(s.cfg.PingInterval)
	c.readLoop(s)
}

// snapshot collects every store's state, sorted by id.
func (s *Server) snapshot() []StoreState {
	handles := s.reg.Handles()
	out := make([]StoreState, 0, len(handles))
	for _, h := range handles {
		state, err := h.StateJSON()
		if err != nil {
			s.logger.Warn("devtools: snapshot failed", "store", h.ID(), "error", err)
			continue
		}
		out = append(out, StoreState{ID: h.ID(), State: state})
	}
	return out
}

// apply executes an inspector command.
func (s *Server) apply(c *client, cmd Command) {
	switch cmd.Cmd {
	case "snapshot":
		c.enqueue(Frame{Type: FrameInit, Stores: s.snapshot()})

	case "patch":
		h, ok := s.reg.Handle(cmd.Store)
		if !ok {
			s.logger.Warn("devtools: patch for unknown store", "store", cmd.Store)
			return
		}
		if err := h.PatchJSON(cmd.State); err != nil {
			s.logger.Warn("devtools: inspector patch rejected", "store", cmd.Store, "error", err)
		}

	case "reset":
		h, ok := s.reg.Handle(cmd.Store)
		if !ok {
			return
		}
		if err := h.Reset(); err != nil {
			s.logger.Warn("devtools: inspector reset rejected", "store", cmd.Store, "error", err)
		}

	default:
		s.logger.Warn("devtools: unknown command", "cmd", cmd.Cmd)
	}
}

func (s *Server) broadcast(f Frame) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if !c.enqueue(f) {
			s.logger.Warn("devtools: dropping slow client", "client", c.id)
			s.removeClient(c)
		}
	}
}

// ClientCount returns the number of connected inspector clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
