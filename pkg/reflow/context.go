package reflow

import "sync"

// cell is the view the pre-update pass has of a computed cell.
type cell interface {
	// MarkDirty invalidates the cached value so the next read recomputes.
	MarkDirty()

	// ID returns the identity token for this cell.
	ID() uint64
}

// Context is the per-instance registry the four primitives collaborate
// through. It holds one token-keyed collection per primitive kind plus the
// ordered teardown cleanup list. A Context is owned by exactly one Runtime
// and is cleared en masse when the host instance is destroyed.
type Context struct {
	mu sync.Mutex

	states     map[uint64]any
	stateOrder []uint64

	computeds     map[uint64]cell
	computedOrder []uint64

	effects     map[uint64]*Effect
	effectOrder []uint64

	watchers     map[uint64]*watcher
	watcherOrder []uint64

	// cleanups run once, in registration order, at teardown.
	cleanups []func()
}

func newContext() *Context {
	return &Context{
		states:    make(map[uint64]any),
		computeds: make(map[uint64]cell),
		effects:   make(map[uint64]*Effect),
		watchers:  make(map[uint64]*watcher),
	}
}

func (c *Context) addState(id uint64, root any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[id] = root
	c.stateOrder = append(c.stateOrder, id)
}

func (c *Context) addComputed(id uint64, cc cell) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.computeds[id] = cc
	c.computedOrder = append(c.computedOrder, id)
}

func (c *Context) addEffect(id uint64, e *Effect) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.effects[id] = e
	c.effectOrder = append(c.effectOrder, id)
}

func (c *Context) addWatcher(id uint64, w *watcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers[id] = w
	c.watcherOrder = append(c.watcherOrder, id)
}

func (c *Context) addCleanup(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanups = append(c.cleanups, fn)
}

// computedCells returns all computed cells in registration order.
// Copies under lock so the pass can run callbacks without holding it.
func (c *Context) computedCells() []cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cell, 0, len(c.computedOrder))
	for _, id := range c.computedOrder {
		if cc, ok := c.computeds[id]; ok {
			out = append(out, cc)
		}
	}
	return out
}

// effectList returns all effects in registration order.
func (c *Context) effectList() []*Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Effect, 0, len(c.effectOrder))
	for _, id := range c.effectOrder {
		if e, ok := c.effects[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// watcherList returns all watchers in registration order.
func (c *Context) watcherList() []*watcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*watcher, 0, len(c.watcherOrder))
	for _, id := range c.watcherOrder {
		if w, ok := c.watchers[id]; ok {
			out = append(out, w)
		}
	}
	return out
}

// takeCleanups returns the cleanup list and truncates it, so each entry
// runs at most once even if the pre-unmount hook fires twice.
func (c *Context) takeCleanups() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.cleanups
	c.cleanups = nil
	return out
}

// clear empties every collection. Called at post-unmount; the context is
// inert afterwards.
func (c *Context) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = make(map[uint64]any)
	c.stateOrder = nil
	c.computeds = make(map[uint64]cell)
	c.computedOrder = nil
	c.effects = make(map[uint64]*Effect)
	c.effectOrder = nil
	c.watchers = make(map[uint64]*watcher)
	c.watcherOrder = nil
	c.cleanups = nil
}

// StateCount returns the number of registered reactive roots.
func (c *Context) StateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.states)
}

// ComputedCount returns the number of registered computed cells.
func (c *Context) ComputedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.computeds)
}

// EffectCount returns the number of registered effects.
func (c *Context) EffectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.effects)
}

// WatcherCount returns the number of registered watchers.
func (c *Context) WatcherCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.watchers)
}

// CleanupCount returns the number of pending teardown cleanups.
func (c *Context) CleanupCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cleanups)
}
