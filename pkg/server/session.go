package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/reflow-dev/reflow/pkg/reflow"
	"github.com/reflow-dev/reflow/pkg/snapshot"
)

// eventFrame is an incoming client message.
type eventFrame struct {
	Type    string         `json:"type"`
	Name    string         `json:"name,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// renderFrame is an outgoing HTML frame.
type renderFrame struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	HTML string `json:"html"`
}

// Session hosts one component for one WebSocket connection. It implements
// reflow.Host: the attached runtime drives its pass off the session's
// lifecycle hooks, and state writes land here as render requests.
type Session struct {
	// ID identifies this connection. InstanceID is stable across
	// reconnects and keys snapshot persistence.
	ID         string
	InstanceID string
	CreatedAt  time.Time

	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool

	component Component
	runtime   *reflow.Runtime

	hooksMu sync.Mutex
	hooks   map[reflow.Hook][]func()
	mounted atomic.Bool

	events       chan eventFrame
	renderCh     chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
	teardownOnce sync.Once
	running      atomic.Bool

	lastActive atomic.Int64

	config    *SessionConfig
	logger    *slog.Logger
	snapshots snapshot.Store

	eventCount atomic.Uint64
	frameSeq   atomic.Uint64

	// lastHTML keeps the most recent render for resync and for tests that
	// run without a connection.
	lastHTML   string
	lastHTMLMu sync.Mutex
}

// NewSession creates a session for conn hosting component. The connection
// may be nil, in which case frames are retained but not sent; the event
// loop and reactivity pass work the same either way.
func NewSession(conn *websocket.Conn, component Component, config *SessionConfig, logger *slog.Logger, store snapshot.Store) *Session {
	if config == nil {
		config = DefaultSessionConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()

	s := &Session{
		ID:         id,
		InstanceID: id,
		CreatedAt:  time.Now(),
		conn:       conn,
		component:  component,
		hooks:      make(map[reflow.Hook][]func()),
		events:     make(chan eventFrame, config.MaxEventQueue),
		renderCh:   make(chan struct{}, 1),
		done:       make(chan struct{}),
		config:     config,
		snapshots:  store,
	}
	s.logger = logger.With("session_id", id)
	s.touch()
	return s
}

// Update implements reflow.Host. A state write requests a render; the
// request is coalesced so a burst of writes produces one pass.
func (s *Session) Update() error {
	if s.closed.Load() {
		return fmt.Errorf("session %s is closed", s.ID)
	}
	select {
	case s.renderCh <- struct{}{}:
	default:
	}
	return nil
}

// OnHook implements reflow.Host.
func (s *Session) OnHook(h reflow.Hook, fn func()) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks[h] = append(s.hooks[h], fn)
}

// Mounted implements reflow.Host.
func (s *Session) Mounted() bool {
	return s.mounted.Load()
}

// Runtime returns the attached reactivity runtime. It is nil before Run.
func (s *Session) Runtime() *reflow.Runtime {
	return s.runtime
}

// LastHTML returns the most recently rendered frame.
func (s *Session) LastHTML() string {
	s.lastHTMLMu.Lock()
	defer s.lastHTMLMu.Unlock()
	return s.lastHTML
}

// IdleSince reports the time of the last client activity.
func (s *Session) IdleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Closed reports whether the session has shut down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Session) fireHook(h reflow.Hook) {
	s.hooksMu.Lock()
	fns := make([]func(), len(s.hooks[h]))
	copy(fns, s.hooks[h])
	s.hooksMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Run attaches the runtime, restores any prior snapshot, mounts the
// component, and drives the event loop until the connection drops, the
// context is canceled, or Close is called.
func (s *Session) Run(ctx context.Context) error {
	s.running.Store(true)
	s.runtime = reflow.Attach(s,
		reflow.WithLogger(s.logger),
		reflow.WithErrorHandler(func(err error) {
			s.logger.Error("runtime error", "error", err)
		}),
	)
	// Teardown hooks must fire on this goroutine: they walk the runtime's
	// registrations, which the event loop also touches. Close only signals.
	defer s.teardown()
	defer s.Close()

	s.restoreSnapshot(ctx)
	s.component.Setup(s.runtime)

	s.mounted.Store(true)
	s.fireHook(reflow.HookMount)
	if err := s.renderAndSend(ctx); err != nil {
		return err
	}

	if s.conn != nil {
		go s.readLoop()
	}

	heartbeat := time.NewTicker(s.config.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case ev := <-s.events:
			s.touch()
			s.handleEvent(ctx, ev)
		case <-s.renderCh:
			// The pass runs off HookBeforeUpdate before the frame renders.
			s.fireHook(reflow.HookBeforeUpdate)
			if err := s.renderAndSend(ctx); err != nil {
				s.logger.Warn("render send failed", "error", err)
				return err
			}
		case <-heartbeat.C:
			if time.Since(s.IdleSince()) > s.config.IdleTimeout {
				s.logger.Info("session idle, closing")
				return nil
			}
			s.sendPing()
		}
	}
}

func (s *Session) readLoop() {
	s.conn.SetReadLimit(s.config.MaxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		var frame eventFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			s.Close()
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		select {
		case s.events <- frame:
		default:
			s.logger.Warn("event queue full, dropping event", "event", frame.Name)
			metricsFor().eventsDropped.Inc()
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev eventFrame) {
	if ev.Type != "event" {
		return
	}
	s.eventCount.Add(1)

	handler, ok := s.component.(EventHandler)
	if !ok {
		s.logger.Warn("component does not handle events", "event", ev.Name)
		return
	}

	_, end := startEventSpan(ctx, s.ID, ev.Name)
	err := s.dispatchEvent(handler, ev)
	end(err)

	if err != nil {
		s.logger.Error("event handler failed", "event", ev.Name, "error", err)
		metricsFor().eventErrors.WithLabelValues(ev.Name).Inc()
	}
	metricsFor().eventsTotal.WithLabelValues(ev.Name).Inc()
}

func (s *Session) dispatchEvent(handler EventHandler, ev eventFrame) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.HandleEvent(ev.Name, ev.Payload)
}

func (s *Session) renderAndSend(ctx context.Context) error {
	start := time.Now()
	_, end := startRenderSpan(ctx, s.ID)

	html, err := s.render()
	end(err)
	if err != nil {
		s.logger.Error("render failed", "error", err)
		return nil
	}
	metricsFor().renderDuration.Observe(time.Since(start).Seconds())

	s.lastHTMLMu.Lock()
	s.lastHTML = html
	s.lastHTMLMu.Unlock()

	return s.sendFrame(renderFrame{
		Type: "render",
		Seq:  s.frameSeq.Add(1),
		HTML: html,
	})
}

func (s *Session) render() (html string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render panic: %v", r)
		}
	}()
	return s.component.Render(), nil
}

func (s *Session) sendFrame(frame renderFrame) error {
	if s.conn == nil {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := s.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	metricsFor().framesSent.Inc()
	return nil
}

func (s *Session) sendPing() {
	if s.conn == nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout))
}

// Close signals shutdown and closes the connection. For a running session
// the teardown hooks fire on the Run goroutine, never on the caller's;
// Closed reports true once teardown has finished. A session that was never
// run is torn down inline.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
		}
	})
	if !s.running.Load() {
		s.teardown()
	}
}

// teardown persists the snapshot, fires the unmount hooks so registered
// cleanups run, and marks the session closed.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.persistSnapshot()

		s.fireHook(reflow.HookBeforeUnmount)
		s.mounted.Store(false)
		s.fireHook(reflow.HookUnmounted)
		s.closed.Store(true)
	})
}

func (s *Session) restoreSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	snap, ok := s.component.(Snapshotter)
	if !ok {
		return
	}
	data, err := s.snapshots.Load(ctx, s.InstanceID)
	if err != nil {
		s.logger.Warn("snapshot load failed", "error", err)
		metricsFor().snapshotOps.WithLabelValues("load", "error").Inc()
		return
	}
	if data == nil {
		return
	}
	if err := snap.Restore(data); err != nil {
		s.logger.Warn("snapshot restore failed", "error", err)
		metricsFor().snapshotOps.WithLabelValues("restore", "error").Inc()
		return
	}
	metricsFor().snapshotOps.WithLabelValues("restore", "ok").Inc()
	s.logger.Info("restored snapshot", "bytes", len(data))
}

func (s *Session) persistSnapshot() {
	if s.snapshots == nil {
		return
	}
	snap, ok := s.component.(Snapshotter)
	if !ok {
		return
	}
	data, err := snap.Snapshot()
	if err != nil {
		s.logger.Warn("snapshot failed", "error", err)
		metricsFor().snapshotOps.WithLabelValues("save", "error").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.snapshots.Save(ctx, s.InstanceID, data, time.Now().Add(s.config.SnapshotTTL)); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
		metricsFor().snapshotOps.WithLabelValues("save", "error").Inc()
		return
	}
	metricsFor().snapshotOps.WithLabelValues("save", "ok").Inc()
}
