package server

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflow-dev/reflow/pkg/snapshot"
)

// SessionStats is a point-in-time view of manager activity.
type SessionStats struct {
	Active       int
	TotalCreated uint64
	TotalClosed  uint64
	Peak         int
}

// SessionManager tracks live sessions, enforces the session limit, and
// hands each new session the shared snapshot store.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	maxSessions int
	config      *SessionConfig
	logger      *slog.Logger
	snapshots   snapshot.Store

	totalCreated uint64
	totalClosed  uint64
	peak         int
}

// NewSessionManager creates a manager. maxSessions of 0 means no limit.
// The snapshot store may be nil, disabling persistence.
func NewSessionManager(config *SessionConfig, maxSessions int, logger *slog.Logger, store snapshot.Store) *SessionManager {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		config:      config,
		logger:      logger,
		snapshots:   store,
	}
}

// Create builds and registers a session for conn. instanceID, when
// non-empty, keys snapshot restoration across reconnects.
func (m *SessionManager) Create(conn *websocket.Conn, component Component, instanceID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("session limit reached (%d)", m.maxSessions)
	}

	s := NewSession(conn, component, m.config, m.logger, m.snapshots)
	if instanceID != "" {
		s.InstanceID = instanceID
	}

	m.sessions[s.ID] = s
	m.totalCreated++
	if len(m.sessions) > m.peak {
		m.peak = len(m.sessions)
	}

	metricsFor().sessionsTotal.Inc()
	metricsFor().activeSessions.Set(float64(len(m.sessions)))
	m.logger.Info("session created", "session_id", s.ID, "instance_id", s.InstanceID, "active", len(m.sessions))
	return s, nil
}

// Remove closes and unregisters a session. Unknown IDs are a no-op.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.totalClosed++
	}
	active := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.Close()
	metricsFor().sessionsClosed.Inc()
	metricsFor().activeSessions.Set(float64(active))
	m.logger.Info("session removed", "session_id", id, "active", active)
}

// Get returns a session by ID.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stats returns a snapshot of manager counters.
func (m *SessionManager) Stats() SessionStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionStats{
		Active:       len(m.sessions),
		TotalCreated: m.totalCreated,
		TotalClosed:  m.totalClosed,
		Peak:         m.peak,
	}
}

// CloseAll shuts down every session, waiting up to timeout for each
// session's teardown hooks to finish via Close's synchronous path.
func (m *SessionManager) CloseAll(timeout time.Duration) {
	m.mu.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.totalClosed += uint64(len(all))
	m.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for _, s := range all {
		s.Close()
		if time.Now().After(deadline) {
			m.logger.Warn("session shutdown deadline exceeded", "remaining", len(all))
			break
		}
	}
	metricsFor().activeSessions.Set(0)
}
