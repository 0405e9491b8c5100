package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/reflow-dev/reflow/pkg/reflow"
	"github.com/reflow-dev/reflow/pkg/snapshot"
)

// counterComponent is the test component: reactive count, a render that
// reads it, and an increment event.
type counterComponent struct {
	rt       *reflow.Runtime
	state    *reflow.Store
	restored map[string]any
	cleanups int
}

func (c *counterComponent) Setup(rt *reflow.Runtime) {
	c.rt = rt
	initial := map[string]any{"count": 0}
	if c.restored != nil {
		initial = c.restored
	}
	c.state = rt.Reactive(initial)
	rt.Effect(func() reflow.Cleanup {
		return func() { c.cleanups++ }
	})
}

func (c *counterComponent) count() int {
	switch v := c.state.Get("count").(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

func (c *counterComponent) Render() string {
	return fmt.Sprintf("<div>count is %d</div>", c.count())
}

func (c *counterComponent) HandleEvent(name string, payload map[string]any) error {
	switch name {
	case "increment":
		c.state.Set("count", c.count()+1)
		return nil
	default:
		return fmt.Errorf("unknown event %q", name)
	}
}

func (c *counterComponent) Snapshot() ([]byte, error) {
	return json.Marshal(c.rt.ToRaw(c.state))
}

func (c *counterComponent) Restore(data []byte) error {
	return json.Unmarshal(data, &c.restored)
}

// runSession starts s.Run in the background and waits for the first frame.
func runSession(t *testing.T, s *Session) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	waitFor(t, func() bool { return s.LastHTML() != "" })
	return cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSessionInitialRender(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()
	defer s.Close()

	if got := s.LastHTML(); got != "<div>count is 0</div>" {
		t.Errorf("unexpected initial frame: %q", got)
	}
	if !s.Mounted() {
		t.Error("session must report mounted after Run starts")
	}
}

func TestSessionEventTriggersRender(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()
	defer s.Close()

	s.events <- eventFrame{Type: "event", Name: "increment"}

	waitFor(t, func() bool {
		return strings.Contains(s.LastHTML(), "count is 1")
	})
}

func TestSessionUpdateCoalesces(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)

	// Repeated requests before the loop drains must not block.
	for i := 0; i < 10; i++ {
		if err := s.Update(); err != nil {
			t.Fatalf("update %d failed: %v", i, err)
		}
	}
	if len(s.renderCh) != 1 {
		t.Errorf("requests must coalesce to one pending render, got %d", len(s.renderCh))
	}
}

func TestSessionUpdateAfterClose(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()

	s.Close()
	waitFor(t, s.Closed)
	if err := s.Update(); err == nil {
		t.Error("update on a closed session must fail")
	}
}

func TestSessionCloseRunsCleanups(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()

	s.Close()
	waitFor(t, s.Closed)

	if comp.cleanups != 1 {
		t.Errorf("effect cleanup must run exactly once on close, got %d", comp.cleanups)
	}
	if s.Mounted() {
		t.Error("closed session must report unmounted")
	}
	// Idempotent.
	s.Close()
	if comp.cleanups != 1 {
		t.Errorf("double close must not re-run cleanups, got %d", comp.cleanups)
	}
}

// nestedComponent reads through a nested observed container on every
// event, exercising the runtime's identity table from the event loop.
type nestedComponent struct {
	state    *reflow.Store
	cleanups int
}

func (c *nestedComponent) Setup(rt *reflow.Runtime) {
	c.state = rt.Reactive(map[string]any{"meta": map[string]any{"hits": 0}})
	rt.Effect(func() reflow.Cleanup {
		return func() { c.cleanups++ }
	})
}

func (c *nestedComponent) hits() int {
	meta := c.state.Get("meta").(*reflow.Store)
	if v, ok := meta.Get("hits").(int); ok {
		return v
	}
	return 0
}

func (c *nestedComponent) Render() string {
	return fmt.Sprintf("<div>hits %d</div>", c.hits())
}

func (c *nestedComponent) HandleEvent(name string, payload map[string]any) error {
	meta := c.state.Get("meta").(*reflow.Store)
	meta.Set("hits", c.hits()+1)
	return nil
}

func TestSessionCloseDoesNotRaceEventLoop(t *testing.T) {
	comp := &nestedComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()

	// Keep the event loop walking nested containers while Close arrives
	// from another goroutine, as the read loop would deliver it.
	go func() {
		for i := 0; i < 200; i++ {
			select {
			case s.events <- eventFrame{Type: "event", Name: "hit"}:
			case <-s.done:
				return
			}
		}
	}()

	time.Sleep(2 * time.Millisecond)
	s.Close()
	waitFor(t, s.Closed)

	if comp.cleanups != 1 {
		t.Errorf("teardown must run exactly once, got %d cleanups", comp.cleanups)
	}
	if s.Mounted() {
		t.Error("closed session must report unmounted")
	}
}

func TestSessionUnknownEventReported(t *testing.T) {
	comp := &counterComponent{}
	s := NewSession(nil, comp, nil, nil, nil)
	cancel := runSession(t, s)
	defer cancel()
	defer s.Close()

	before := s.eventCount.Load()
	s.events <- eventFrame{Type: "event", Name: "bogus"}
	waitFor(t, func() bool { return s.eventCount.Load() > before })

	// Still renders the last good state.
	if !strings.Contains(s.LastHTML(), "count is 0") {
		t.Errorf("failed event must not corrupt the frame, got %q", s.LastHTML())
	}
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	store := snapshot.NewMemoryStore()
	defer store.Close()

	first := &counterComponent{}
	s1 := NewSession(nil, first, nil, nil, store)
	s1.InstanceID = "shared-instance"
	cancel1 := runSession(t, s1)

	s1.events <- eventFrame{Type: "event", Name: "increment"}
	s1.events <- eventFrame{Type: "event", Name: "increment"}
	waitFor(t, func() bool { return strings.Contains(s1.LastHTML(), "count is 2") })

	s1.Close()
	waitFor(t, s1.Closed)
	cancel1()

	// A new session with the same instance ID restores the count.
	second := &counterComponent{}
	s2 := NewSession(nil, second, nil, nil, store)
	s2.InstanceID = "shared-instance"
	cancel2 := runSession(t, s2)
	defer cancel2()
	defer s2.Close()

	if !strings.Contains(s2.LastHTML(), "count is 2") {
		t.Errorf("expected restored state in first frame, got %q", s2.LastHTML())
	}
}
