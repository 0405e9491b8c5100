// Package reflow provides a per-instance reactivity runtime for host UI
// components. A host instance declares mutable state, derived values, side
// effects, and change observers, and has its re-render operation invoked
// automatically when relevant data changes.
//
// The runtime attaches to one host instance at a time via Attach, which
// returns an explicit *Runtime handle:
//
//	rt := reflow.Attach(host)
//	state := rt.Reactive(map[string]any{"count": 0})
//	doubled := reflow.NewComputed(rt, func() (int, error) {
//	    return state.Get("count").(int) * 2, nil
//	})
//	rt.Effect(func() reflow.Cleanup {
//	    fmt.Println("mounted")
//	    return func() { fmt.Println("torn down") }
//	}, reflow.WithDeps(func() []any { return []any{state.Get("count")} }))
//	rt.Watch(func() (any, error) { return state.Get("count"), nil },
//	    func(newV, oldV any) { fmt.Println(oldV, "->", newV) })
//
// # Invalidation model
//
// Invalidation is deliberately coarse. On every pre-update pass (driven by
// the host's before-update hook) the runtime marks every computed cell
// dirty, re-evaluates every watcher, and re-runs every effect whose
// declared dependency snapshot changed — in that order, synchronously,
// before the host re-renders. There is no fine-grained tracking of which
// state fields a getter reads.
//
// # Observed containers
//
// Go has no transparent property interception, so reactive state is held in
// explicit observed containers: Store for objects and List for arrays.
// Wrapping the same raw map or slice twice yields the same container
// (identity-stable), and writes only notify the host when the value
// actually changed under Object.is-style equality.
//
// # Error handling
//
// Only computed derivation failures surface to the caller; every other
// failure (render notification, effect body, watcher getter or callback,
// teardown cleanup) is recovered locally and reported through the runtime's
// error channel with a fixed "[REFLOW Exxx]" prefix.
//
// # Concurrency
//
// The runtime is host-driven and cooperative: every primitive call and
// every lifecycle pass runs to completion on the goroutine that drives the
// host instance. Nothing here spawns timers or background goroutines.
package reflow
