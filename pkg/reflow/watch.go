package reflow

import "fmt"

// WatchCallback receives the new and previous value when a watched
// expression changes.
type WatchCallback func(newValue, oldValue any)

// WatchPair couples a getter with its callback for WatchMany.
type WatchPair struct {
	Getter   func() (any, error)
	Callback WatchCallback
}

// WatchOptions configures WatchObject.
type WatchOptions struct {
	// Deep requests structural watching of the whole value graph. Deep
	// watching is not implemented: setting it reports a W001 warning and
	// the watcher behaves as a shallow watch.
	Deep bool
}

// watcher holds a getter, a callback, and the last observed value.
type watcher struct {
	id uint64
	rt *Runtime

	getter   func() (any, error)
	callback WatchCallback
	prev     any
}

// Watch registers a change observer. The getter runs synchronously once to
// seed the previous value; if that invocation fails, the error is reported,
// no watcher is registered, and the error is returned.
//
// On every pre-update pass the getter runs again. A getter failure skips
// that pass (the previous value is left unchanged) but keeps the watcher
// registered. When the new value differs from the previous one under
// Object.is-style equality, the callback is invoked with (new, old); the
// stored previous value is updated before the callback runs, so a callback
// that mutates reactive state cannot re-trigger itself with a stale value.
func (rt *Runtime) Watch(getter func() (any, error), callback WatchCallback) error {
	if rt.detached.Load() {
		rt.reportDetached()
		return ErrDetached
	}

	seed, err := safeGet(getter)
	if err != nil {
		rt.report("E004", err)
		return err
	}

	w := &watcher{
		id:       nextID(),
		rt:       rt,
		getter:   getter,
		callback: callback,
		prev:     seed,
	}
	rt.ctx.addWatcher(w.id, w)
	return nil
}

// WatchMany registers each (getter, callback) pair independently, in input
// order. A pair whose seed fails is skipped; the remaining pairs still
// register. The first seed error is returned.
func (rt *Runtime) WatchMany(pairs []WatchPair) error {
	var first error
	for _, p := range pairs {
		if err := rt.Watch(p.Getter, p.Callback); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WatchObject is a single watch registration with options. Deep watching is
// a documented limitation: it warns and degrades to shallow rather than
// silently behaving differently.
func (rt *Runtime) WatchObject(getter func() (any, error), callback WatchCallback, opts WatchOptions) error {
	if opts.Deep {
		rt.report("W001", nil)
	}
	return rt.Watch(getter, callback)
}

// check runs one pre-update evaluation of the watcher.
func (w *watcher) check() {
	next, err := safeGet(w.getter)
	if err != nil {
		w.rt.report("E004", err)
		return
	}
	if identical(w.prev, next) {
		return
	}

	old := w.prev
	w.prev = next
	w.rt.guard("E004", func() {
		w.callback(next, old)
	})
}

// safeGet invokes a getter, converting panics into errors.
func safeGet(getter func() (any, error)) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("watch getter panic: %v", r)
		}
	}()
	return getter()
}
