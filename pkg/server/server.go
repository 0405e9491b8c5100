package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reflow-dev/reflow/pkg/snapshot"
)

// Server is the HTTP/WebSocket front end. Each WebSocket upgrade creates a
// session around a fresh component from the configured factory.
type Server struct {
	sessions  *SessionManager
	config    *ServerConfig
	upgrader  websocket.Upgrader
	component func() Component
	logger    *slog.Logger

	router     chi.Router
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSnapshotStore sets the snapshot store for session persistence.
func WithSnapshotStore(store snapshot.Store) Option {
	return func(s *Server) {
		s.sessions.snapshots = store
	}
}

// WithServerLogger sets the logger. Default: slog.Default().
func WithServerLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger.With("component", "server")
		s.sessions.logger = s.logger
	}
}

// New creates a server hosting components produced by factory. A nil
// config gets defaults; a partial config has its zero fields filled in.
func New(config *ServerConfig, factory func() Component, opts ...Option) *Server {
	if config == nil {
		config = DefaultServerConfig()
	} else {
		config.fillDefaults()
	}

	logger := slog.Default().With("component", "server")

	s := &Server{
		config:    config,
		component: factory,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	s.sessions = NewSessionManager(config.SessionConfig, config.MaxSessions, logger, nil)

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.buildRouter()
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Handler returns the HTTP handler, for mounting under another router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", s.handleWebSocket)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleWebSocket upgrades the connection and runs a session on it. The
// optional ?instance= query parameter resumes a persisted snapshot.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	instanceID := r.URL.Query().Get("instance")
	sess, err := s.sessions.Create(conn, s.component(), instanceID)
	if err != nil {
		s.logger.Warn("session rejected", "error", err)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session limit"),
			time.Now().Add(s.config.SessionConfig.WriteTimeout))
		conn.Close()
		return
	}

	// The request context dies when this handler returns; the session
	// outlives it but keeps its values for tracing.
	ctx := context.WithoutCancel(r.Context())
	go func() {
		defer s.sessions.Remove(sess.ID)
		if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("session ended", "session_id", sess.ID, "error", err)
		}
	}()
}

// ListenAndServe starts the HTTP server and blocks until SIGINT/SIGTERM,
// then shuts down gracefully within the configured timeout.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
		IdleTimeout:       s.config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "address", s.config.Address)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sig:
		s.logger.Info("shutting down")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes all sessions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.sessions.CloseAll(s.config.ShutdownTimeout)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
