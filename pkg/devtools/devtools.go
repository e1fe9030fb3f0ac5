// Package devtools provides an in-process inspector for the reactive
// runtime: an HTTP server exposing live graph counters, Prometheus
// metrics, and a websocket stream of runtime events.
//
// The server is itself an instrumentation sink. Install it alone or
// alongside other sinks:
//
//	dt := devtools.New(nil)
//	ripple.SetInstrumentation(ripple.CombineInstrumentation(
//		metrics.New(),
//		dt,
//	))
//	go dt.Start(ctx)
//
// Routes:
//
//	GET /healthz   liveness probe
//	GET /snapshot  JSON counters for the live graph
//	GET /metrics   Prometheus exposition
//	GET /events    websocket stream of runtime events
package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripple-dev/ripple/pkg/ripple"
)

// Config configures the inspector server.
type Config struct {
	// Addr is the listen address.
	Addr string

	// SendBuffer is the per-subscriber event buffer. Events beyond it
	// are dropped rather than blocking the runtime.
	SendBuffer int

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// MetricsHandler serves GET /metrics. Defaults to promhttp.Handler,
	// which exposes the default Prometheus registry.
	MetricsHandler http.Handler

	// Logger is the server logger. Defaults to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns the default inspector configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:            "localhost:9990",
		SendBuffer:      64,
		ShutdownTimeout: 5 * time.Second,
	}
}

var _ ripple.Instrumentation = (*Server)(nil)

// Server is the inspector server.
type Server struct {
	config   *Config
	logger   *slog.Logger
	stats    stats
	hub      *hub
	upgrader websocket.Upgrader

	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New creates an inspector server. A nil config uses defaults.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	} else {
		defaults := DefaultConfig()
		if config.Addr == "" {
			config.Addr = defaults.Addr
		}
		if config.SendBuffer == 0 {
			config.SendBuffer = defaults.SendBuffer
		}
		if config.ShutdownTimeout == 0 {
			config.ShutdownTimeout = defaults.ShutdownTimeout
		}
	}
	if config.MetricsHandler == nil {
		config.MetricsHandler = promhttp.Handler()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "devtools")

	s := &Server{
		config: config,
		logger: logger,
		hub:    newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // local inspector, any origin may connect
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/snapshot", s.handleSnapshot)
	r.Handle("/metrics", config.MetricsHandler)
	r.Get("/events", s.handleEvents)

	s.httpServer = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns an http.Handler for mounting the inspector routes in an
// external router instead of running a dedicated server.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until ctx is
// cancelled or the server fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("devtools: listen %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Info("inspector listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown gracefully stops the server. Websocket subscribers are closed
// first; Shutdown does not touch hijacked connections.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.hub.closeAll()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("shutdown error", "error", err)
		return err
	}
	s.logger.Info("inspector stopped")
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Snapshot()); err != nil {
		s.logger.Error("snapshot encode error", "error", err)
	}
}

// handleEvents upgrades the connection and streams runtime events until
// the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, s.config.SendBuffer),
	}
	s.hub.add(sub)
	s.logger.Debug("inspector client connected", "remote", conn.RemoteAddr().String())

	go s.hub.writeLoop(sub)
	s.hub.readLoop(sub)
}
