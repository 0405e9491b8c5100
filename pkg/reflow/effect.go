package reflow

// Cleanup is a function returned by an effect to release its resources.
// It runs before the effect re-runs and once more at instance teardown.
type Cleanup func()

// EffectFunc is an effect body. Returning a non-nil Cleanup replaces the
// previously stored cleanup; returning nil clears it.
type EffectFunc func() Cleanup

// Effect is a registered side effect with an optional explicit dependency
// snapshot. At most one cleanup is live at a time: a new invocation always
// first runs and discards the previous cleanup.
type Effect struct {
	id uint64
	rt *Runtime

	fn EffectFunc

	// deps, when set, is re-evaluated on every pre-update pass and the
	// snapshot compared pairwise and by length.
	deps     func() []any
	lastDeps []any

	cleanup Cleanup
	ran     bool
}

// EffectOption configures an effect registration.
type EffectOption func(*Effect)

// WithDeps declares an explicit dependency getter. The effect re-runs on a
// pre-update pass only when the snapshot it returns changed since the last
// run; without WithDeps the effect runs exactly once per mount.
func WithDeps(deps func() []any) EffectOption {
	return func(e *Effect) {
		e.deps = deps
	}
}

// Effect registers a side effect. If the host has already mounted the
// effect runs immediately; otherwise it is deferred to the mount hook. In
// both cases it fires at most once per registration from a single mount.
//
// Every registration appends one teardown entry to the instance's cleanup
// list; the entry runs whatever cleanup is current at teardown time, not a
// snapshot taken now. Panics in the effect body or its cleanup are
// recovered and reported; they never propagate and never block siblings.
func (rt *Runtime) Effect(fn EffectFunc, opts ...EffectOption) *Effect {
	e := &Effect{
		id: nextID(),
		rt: rt,
		fn: fn,
	}
	for _, opt := range opts {
		opt(e)
	}

	if rt.detached.Load() {
		rt.reportDetached()
		return e
	}

	if e.deps != nil {
		e.lastDeps = e.deps()
	}

	rt.ctx.addEffect(e.id, e)
	rt.ctx.addCleanup(func() {
		if e.cleanup != nil {
			prev := e.cleanup
			e.cleanup = nil
			prev()
		}
	})

	if rt.host.Mounted() {
		e.run()
	}
	return e
}

// ID returns the identity token for this effect.
func (e *Effect) ID() uint64 {
	return e.id
}

// run invokes the effect: previous cleanup first (guarded), then the body,
// then stores the returned cleanup.
func (e *Effect) run() {
	e.ran = true

	if e.cleanup != nil {
		prev := e.cleanup
		e.cleanup = nil
		e.rt.guard("E003", prev)
	}

	var next Cleanup
	e.rt.guard("E003", func() {
		next = e.fn()
	})
	e.cleanup = next
}

// check re-evaluates the dependency getter during a pre-update pass and
// re-runs the effect when the snapshot changed. An unchanged snapshot
// leaves the stored dependency slice untouched.
func (e *Effect) check() {
	if e.deps == nil || !e.ran {
		return
	}
	next := e.deps()
	if !depsChanged(e.lastDeps, next) {
		return
	}
	e.lastDeps = next
	e.run()
}
