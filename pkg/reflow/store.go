package reflow

import (
	"reflect"
	"sort"
)

// Store is an identity-stable observed container over a raw
// map[string]any. Property writes and deletes detect real change under
// Object.is-style equality and request a host re-render when the value
// actually changed. Nested maps and slices are wrapped lazily on read and
// resolve to the same container per raw object.
//
// A Store never copies the raw map: reads and writes go straight through,
// so ToRaw always observes current state.
type Store struct {
	rt  *Runtime
	raw map[string]any
}

// List is the observed container for a raw []any. Index writes and length
// mutation flow through the same notification path as Store writes.
type List struct {
	rt  *Runtime
	raw []any

	// writeBack propagates a changed slice header to the parent container.
	// nil for root lists.
	writeBack func([]any)
}

// Reactive wraps a raw object in an observed Store and registers it as one
// of this instance's reactive roots. Wrapping the same raw map twice
// returns the same Store. A nil map is replaced with an empty one.
func (rt *Runtime) Reactive(initial map[string]any) *Store {
	if initial == nil {
		initial = make(map[string]any)
	}
	if rt.detached.Load() {
		rt.reportDetached()
		return &Store{rt: rt, raw: initial}
	}
	s := rt.wrapMap(initial)
	rt.ctx.addState(nextID(), s)
	return s
}

// ReactiveList wraps a raw slice in an observed List and registers it as a
// reactive root. Wrapping the same raw slice twice returns the same List.
func (rt *Runtime) ReactiveList(initial []any) *List {
	if rt.detached.Load() {
		rt.reportDetached()
		return &List{rt: rt, raw: initial}
	}
	l := rt.wrapSlice(initial, nil)
	rt.ctx.addState(nextID(), l)
	return l
}

// IsReactive reports whether v is an observed container produced by this
// runtime. Containers are tracked by the runtime's identity table, so
// unrelated values can never report true.
func (rt *Runtime) IsReactive(v any) bool {
	switch x := v.(type) {
	case *Store:
		return x.rt == rt
	case *List:
		return x.rt == rt
	default:
		return false
	}
}

// ToRaw returns the original un-wrapped object for containers produced by
// this runtime. Primitives and foreign values are returned unchanged,
// never copied.
func (rt *Runtime) ToRaw(v any) any {
	switch x := v.(type) {
	case *Store:
		if x.rt == rt {
			return x.raw
		}
	case *List:
		if x.rt == rt {
			return x.raw
		}
	}
	return v
}

// wrapMap returns the identity-stable Store for a raw map, creating and
// registering one on first sight.
func (rt *Runtime) wrapMap(raw map[string]any) *Store {
	key := reflect.ValueOf(raw).Pointer()
	if c, ok := rt.containers[key]; ok {
		if s, ok := c.(*Store); ok {
			return s
		}
	}
	s := &Store{rt: rt, raw: raw}
	rt.containers[key] = s
	return s
}

// wrapSlice returns the identity-stable List for a raw slice. Zero-capacity
// slices are given a real backing array first: every zero-size allocation
// shares one address, which would alias unrelated empty lists in the
// identity table.
//
// A raw slice reachable from more than one parent binds its write-back to
// the most recently read parent. A growth that reallocates the backing
// array reaches that parent only; other aliases keep the stale header
// until they are read again. Containers are single-parent in practice, so
// per-parent write-back bookkeeping is not worth its cost here.
func (rt *Runtime) wrapSlice(raw []any, writeBack func([]any)) *List {
	if cap(raw) == 0 {
		raw = make([]any, 0, 1)
		if writeBack != nil {
			writeBack(raw)
		}
	}

	key := slicePtr(raw)
	if c, ok := rt.containers[key]; ok {
		if l, ok := c.(*List); ok {
			l.writeBack = writeBack
			return l
		}
	}
	l := &List{rt: rt, raw: raw, writeBack: writeBack}
	rt.containers[key] = l
	return l
}

// wrapValue wraps object-valued reads and passes primitives through. A nil
// map or nil slice is treated like a null value and passes through
// unwrapped.
func (rt *Runtime) wrapValue(v any, writeBack func([]any)) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return v
		}
		return rt.wrapMap(x)
	case []any:
		if x == nil {
			return v
		}
		return rt.wrapSlice(x, writeBack)
	default:
		return v
	}
}

// unwrap stores a container's raw object instead of the container itself,
// so raw state never nests observed wrappers.
func (rt *Runtime) unwrap(v any) any {
	switch x := v.(type) {
	case *Store:
		return x.raw
	case *List:
		return x.raw
	default:
		return v
	}
}

func slicePtr(s []any) uintptr {
	return reflect.ValueOf(s).Pointer()
}

// =============================================================================
// Store operations
// =============================================================================

// Get returns the value for key, wrapping object values in their
// identity-stable containers. Missing keys read as nil.
func (s *Store) Get(key string) any {
	v, ok := s.raw[key]
	if !ok {
		return nil
	}
	return s.rt.wrapValue(v, func(nr []any) { s.raw[key] = nr })
}

// Set assigns value to key. The assignment always takes effect, but the
// host is only notified when the value actually changed under
// Object.is-style equality.
func (s *Store) Set(key string, value any) {
	value = s.rt.unwrap(value)
	old, existed := s.raw[key]
	s.raw[key] = value
	if existed && identical(old, value) {
		return
	}
	s.rt.notify()
}

// Delete removes key and notifies the host. Deleting a missing key is a
// no-op.
func (s *Store) Delete(key string) {
	if _, ok := s.raw[key]; !ok {
		return
	}
	delete(s.raw, key)
	s.rt.notify()
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.raw[key]
	return ok
}

// Len returns the number of keys.
func (s *Store) Len() int {
	return len(s.raw)
}

// Keys returns the store's keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.raw))
	for k := range s.raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Raw returns the underlying raw map.
func (s *Store) Raw() map[string]any {
	return s.raw
}

// =============================================================================
// List operations
// =============================================================================

// Len returns the list length.
func (l *List) Len() int {
	return len(l.raw)
}

// At returns the element at index i, wrapping object values. Out-of-range
// indices read as nil.
func (l *List) At(i int) any {
	if i < 0 || i >= len(l.raw) {
		return nil
	}
	return l.rt.wrapValue(l.raw[i], func(nr []any) { l.raw[i] = nr })
}

// Set assigns value at index i, growing the list with nils when i is past
// the end. In-range writes of an identical value do not notify.
func (l *List) Set(i int, value any) {
	if i < 0 {
		return
	}
	value = l.rt.unwrap(value)

	if i >= len(l.raw) {
		nr := l.raw
		for len(nr) <= i {
			nr = append(nr, nil)
		}
		nr[i] = value
		l.setRaw(nr)
		l.rt.notify()
		return
	}

	old := l.raw[i]
	l.raw[i] = value
	if identical(old, value) {
		return
	}
	l.rt.notify()
}

// Append adds values to the end of the list. Appending nothing is a no-op.
func (l *List) Append(values ...any) {
	if len(values) == 0 {
		return
	}
	nr := l.raw
	for _, v := range values {
		nr = append(nr, l.rt.unwrap(v))
	}
	l.setRaw(nr)
	l.rt.notify()
}

// Truncate shortens the list to n elements. Lengthening is not possible
// through Truncate; use Set past the end instead.
func (l *List) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(l.raw) {
		return
	}
	l.setRaw(l.raw[:n])
	l.rt.notify()
}

// Raw returns the underlying raw slice.
func (l *List) Raw() []any {
	return l.raw
}

// setRaw installs a new slice header, re-keys the identity table if the
// backing array moved, and propagates the header to the parent container.
func (l *List) setRaw(nr []any) {
	oldKey := slicePtr(l.raw)
	newKey := slicePtr(nr)
	l.raw = nr
	if oldKey != newKey {
		delete(l.rt.containers, oldKey)
		l.rt.containers[newKey] = l
	}
	if l.writeBack != nil {
		l.writeBack(nr)
	}
}
