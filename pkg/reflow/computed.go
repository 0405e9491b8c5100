package reflow

import (
	"fmt"
	"sync"
)

// Computed is a cached derivation with a coarse dirty flag. The getter runs
// only when the cell is dirty; reading a clean cell returns the cached
// result without invoking the getter.
//
// The engine performs coarse invalidation: every computed cell belonging to
// an instance is marked dirty immediately before that instance's next
// re-render evaluation, regardless of which state the getter actually
// reads. A getter that reads nothing is still recomputed whenever anything
// else in the instance changes.
type Computed[T any] struct {
	id uint64
	rt *Runtime

	getter func() (T, error)

	mu    sync.Mutex
	value T
	dirty bool
}

// NewComputed creates a computed cell within the given runtime. The cell
// starts dirty, so the first read invokes the getter.
//
// A failed getter leaves the cell dirty: the error is reported through the
// runtime's error channel and also returned to the reader, so a failed
// derivation is never silently replaced by stale data.
func NewComputed[T any](rt *Runtime, getter func() (T, error)) *Computed[T] {
	c := &Computed[T]{
		id:     nextID(),
		rt:     rt,
		getter: getter,
		dirty:  true,
	}
	if rt.detached.Load() {
		rt.reportDetached()
		return c
	}
	rt.ctx.addComputed(c.id, c)
	return c
}

// NewComputedGroup creates one independently cached cell per named getter,
// preserving key names. Equivalent to calling NewComputed once per entry.
func NewComputedGroup(rt *Runtime, getters map[string]func() (any, error)) map[string]*Computed[any] {
	out := make(map[string]*Computed[any], len(getters))
	for name, getter := range getters {
		out[name] = NewComputed(rt, getter)
	}
	return out
}

// Value returns the derived value, recomputing only when dirty. Getter
// panics are converted to errors.
func (c *Computed[T]) Value() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dirty {
		v, err := c.compute()
		if err != nil {
			c.rt.report("E002", err)
			var zero T
			return zero, err
		}
		c.value = v
		c.dirty = false
	}
	return c.value, nil
}

// MarkDirty invalidates the cached value so the next read recomputes.
// The pre-update pass calls this for every cell of the instance.
func (c *Computed[T]) MarkDirty() {
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
}

// ID returns the identity token for this cell.
func (c *Computed[T]) ID() uint64 {
	return c.id
}

func (c *Computed[T]) compute() (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("computed getter panic: %v", r)
		}
	}()
	return c.getter()
}
