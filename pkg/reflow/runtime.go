package reflow

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	rferrors "github.com/reflow-dev/reflow/internal/errors"
)

// ErrDetached is returned when a primitive is called on a runtime that has
// been detached from its host or whose host has unmounted.
var ErrDetached = errors.New("reflow: runtime detached")

// Runtime is the per-instance handle returned by Attach. It owns the
// instance Context, the raw↔container identity table, and the lifecycle
// glue that drives dirty-marking, watcher checks, and effect dependency
// re-checks from the host's hooks.
//
// A Runtime must only be used from the goroutine that drives its host's
// lifecycle.
type Runtime struct {
	id   uint64
	host Host
	ctx  *Context

	// containers is the identity table mapping raw map/slice data pointers
	// to their observed containers. Lookup only; cleared at teardown so it
	// never outlives the instance.
	containers map[uintptr]any

	logger  *slog.Logger
	onError func(error)

	detached atomic.Bool
}

// Option configures a Runtime at attach time.
type Option func(*Runtime)

// WithLogger sets the logger used for reported errors.
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithErrorHandler routes reported errors to fn instead of the logger.
// Every reported error is an *internal/errors.Error carrying its
// "[REFLOW Exxx]" code.
func WithErrorHandler(fn func(error)) Option {
	return func(rt *Runtime) {
		rt.onError = fn
	}
}

// Attach binds a new Runtime to the given host instance. It registers the
// runtime's callbacks on the host's mount, before-update, before-unmount,
// and unmounted hook slots; any callback the host already holds on those
// slots is unaffected and runs in its own registration order.
//
// Detach the returned handle with (*Runtime).Detach. Attaching twice to
// the same host produces two independent runtimes; there is no implicit
// process-wide install state.
func Attach(host Host, opts ...Option) *Runtime {
	rt := &Runtime{
		id:         nextID(),
		host:       host,
		ctx:        newContext(),
		containers: make(map[uintptr]any),
		logger:     slog.Default().With("component", "reflow"),
	}

	for _, opt := range opts {
		opt(rt)
	}

	host.OnHook(HookMount, rt.handleMount)
	host.OnHook(HookBeforeUpdate, rt.handleBeforeUpdate)
	host.OnHook(HookBeforeUnmount, rt.handleBeforeUnmount)
	host.OnHook(HookUnmounted, rt.handleUnmounted)

	return rt
}

// ID returns the identity token for this runtime.
func (rt *Runtime) ID() uint64 {
	return rt.id
}

// Context returns the per-instance registry. Exposed for host runtimes and
// tests that need to inspect registration counts.
func (rt *Runtime) Context() *Context {
	return rt.ctx
}

// Detach disconnects the runtime from its host. Hook callbacks already
// registered on the host become no-ops, and primitive calls on a detached
// runtime are reported and ignored. Detach does not run teardown cleanups;
// those belong to the host's unmount sequence.
func (rt *Runtime) Detach() {
	rt.detached.Store(true)
}

// Detached reports whether Detach has been called or the host unmounted.
func (rt *Runtime) Detached() bool {
	return rt.detached.Load()
}

// handleMount fires deferred effects, in registration order. Effects
// registered after mount have already run; each registration fires at most
// once per mount.
func (rt *Runtime) handleMount() {
	if rt.detached.Load() {
		return
	}
	for _, e := range rt.ctx.effectList() {
		if !e.ran {
			e.run()
		}
	}
}

// handleBeforeUpdate is the single ordered invalidation pass: mark every
// computed cell dirty, check every watcher, then re-check every
// dependency-bearing effect. Entries are visited in registration order.
func (rt *Runtime) handleBeforeUpdate() {
	if rt.detached.Load() {
		return
	}
	for _, cc := range rt.ctx.computedCells() {
		cc.MarkDirty()
	}
	for _, w := range rt.ctx.watcherList() {
		w.check()
	}
	for _, e := range rt.ctx.effectList() {
		e.check()
	}
}

// handleBeforeUnmount runs every teardown cleanup in registration order.
// One failing cleanup does not prevent the rest from running. Cleanups
// registered before a Detach still belong to the host's unmount sequence,
// so this hook is not gated on the detached flag.
func (rt *Runtime) handleBeforeUnmount() {
	for _, fn := range rt.ctx.takeCleanups() {
		rt.guard("E006", fn)
	}
}

// handleUnmounted clears every collection; the context becomes inert.
func (rt *Runtime) handleUnmounted() {
	rt.ctx.clear()
	rt.containers = make(map[uintptr]any)
	rt.detached.Store(true)
}

// notify invokes the host's re-render request. Failures are reported and
// swallowed; the mutation that triggered the notification has already been
// committed.
func (rt *Runtime) notify() {
	if rt.detached.Load() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			rt.report("E001", fmt.Errorf("update panic: %v", r))
		}
	}()
	if err := rt.host.Update(); err != nil {
		rt.report("E001", err)
	}
}

// guard runs fn, converting a panic into a reported error under the given
// code. Used for effect bodies, cleanups, and watch callbacks, whose
// failures must never propagate.
func (rt *Runtime) guard(code string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			rt.report(code, fmt.Errorf("panic: %v", r))
		}
	}()
	fn()
}

// report sends a coded error to the configured error channel. W-codes log
// at warning level; everything else at error level.
func (rt *Runtime) report(code string, cause error) {
	var err *rferrors.Error
	if cause != nil {
		err = rferrors.FromError(cause, code)
	} else {
		err = rferrors.New(code)
	}

	if rt.onError != nil {
		rt.onError(err)
		return
	}
	if strings.HasPrefix(code, "W") {
		rt.logger.Warn(err.Error(), "category", string(err.Category))
		return
	}
	rt.logger.Error(err.Error(), "category", string(err.Category))
}

// reportDetached reports a primitive call on a detached runtime.
func (rt *Runtime) reportDetached() {
	rt.report("E005", nil)
}
