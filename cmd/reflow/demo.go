package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/reflow-dev/reflow/pkg/reflow"
)

// counterDemo exercises every runtime primitive: reactive state, a cached
// computed, a change watcher, and a dependency-gated effect.
type counterDemo struct {
	rt       *reflow.Runtime
	state    *reflow.Store
	doubled  *reflow.Computed[int]
	title    string
	restored map[string]any
}

func newCounterDemo() *counterDemo {
	return &counterDemo{}
}

func (c *counterDemo) Setup(rt *reflow.Runtime) {
	c.rt = rt

	initial := map[string]any{"count": 0}
	if c.restored != nil {
		initial = c.restored
	}
	c.state = rt.Reactive(initial)

	c.doubled = reflow.NewComputed(rt, func() (int, error) {
		return c.count() * 2, nil
	})

	rt.Watch(
		func() (any, error) { return c.state.Get("count"), nil },
		func(newV, oldV any) {
			slog.Debug("count changed", "new", newV, "old", oldV)
		},
	)

	rt.Effect(func() reflow.Cleanup {
		c.title = fmt.Sprintf("count is %d", c.count())
		return nil
	}, reflow.WithDeps(func() []any { return []any{c.state.Get("count")} }))
}

func (c *counterDemo) count() int {
	switch v := c.state.Get("count").(type) {
	case int:
		return v
	case float64:
		// Snapshot restores decode JSON numbers as float64.
		return int(v)
	}
	return 0
}

func (c *counterDemo) Render() string {
	doubled, err := c.doubled.Value()
	if err != nil {
		return fmt.Sprintf("<div>render error: %v</div>", err)
	}
	return fmt.Sprintf(
		`<div><h1>%s</h1><p>doubled: %d</p><button data-event="increment">+</button><button data-event="decrement">-</button><button data-event="reset">reset</button></div>`,
		c.title, doubled,
	)
}

func (c *counterDemo) HandleEvent(name string, payload map[string]any) error {
	switch name {
	case "increment":
		c.state.Set("count", c.count()+1)
	case "decrement":
		c.state.Set("count", c.count()-1)
	case "reset":
		c.state.Set("count", 0)
	default:
		return fmt.Errorf("unknown event %q", name)
	}
	return nil
}

func (c *counterDemo) Snapshot() ([]byte, error) {
	return json.Marshal(c.rt.ToRaw(c.state))
}

func (c *counterDemo) Restore(data []byte) error {
	return json.Unmarshal(data, &c.restored)
}
