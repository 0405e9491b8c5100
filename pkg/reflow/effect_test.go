package reflow

import (
	"strings"
	"testing"
)

func TestEffectDeferredToMount(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	runs := 0
	rt.Effect(func() Cleanup {
		runs++
		return nil
	})

	if runs != 0 {
		t.Fatal("effect registered before mount must not run yet")
	}

	host.mount()
	if runs != 1 {
		t.Errorf("effect should run once at mount, got %d", runs)
	}

	// A second mount event must not re-fire it.
	host.fire(HookMount)
	if runs != 1 {
		t.Errorf("effect must never fire twice for one registration, got %d", runs)
	}
}

func TestEffectImmediateWhenMounted(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	runs := 0
	rt.Effect(func() Cleanup {
		runs++
		return nil
	})

	if runs != 1 {
		t.Errorf("effect registered after mount should run immediately, got %d", runs)
	}
}

func TestEffectWithoutDepsRunsOnce(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	runs := 0
	rt.Effect(func() Cleanup {
		runs++
		return nil
	})

	host.tick()
	host.tick()
	if runs != 1 {
		t.Errorf("a dependency-less effect runs exactly once, got %d", runs)
	}
}

func TestEffectDependencyGating(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	a, b := 1, 2
	runs := 0
	cleanups := 0
	rt.Effect(func() Cleanup {
		runs++
		return func() { cleanups++ }
	}, WithDeps(func() []any { return []any{a, b} }))

	host.mount()
	if runs != 1 {
		t.Fatalf("expected initial run, got %d", runs)
	}

	// Unchanged deps: no re-invocation.
	host.tick()
	if runs != 1 || cleanups != 0 {
		t.Errorf("unchanged deps must not re-run, got runs=%d cleanups=%d", runs, cleanups)
	}

	// Changing either dep re-invokes exactly once, cleanup first.
	a = 10
	host.tick()
	if runs != 2 {
		t.Errorf("changed dep should re-run exactly once, got %d", runs)
	}
	if cleanups != 1 {
		t.Errorf("previous cleanup should run exactly once before re-invocation, got %d", cleanups)
	}

	b = 20
	host.tick()
	if runs != 3 || cleanups != 2 {
		t.Errorf("expected runs=3 cleanups=2, got runs=%d cleanups=%d", runs, cleanups)
	}
}

func TestEffectDepsLengthChange(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	deps := []any{1}
	runs := 0
	rt.Effect(func() Cleanup {
		runs++
		return nil
	}, WithDeps(func() []any { return deps }))

	deps = []any{1, 2}
	host.tick()
	if runs != 2 {
		t.Errorf("a length change alone must re-run the effect, got %d runs", runs)
	}
}

func TestEffectCleanupOrdering(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	n := 0
	var order []string
	rt.Effect(func() Cleanup {
		order = append(order, "run")
		return func() {
			order = append(order, "cleanup")
		}
	}, WithDeps(func() []any { return []any{n} }))

	n = 1
	host.tick()

	want := "run,cleanup,run"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestEffectPanicContained(t *testing.T) {
	host := newTestHost()

	var reported []error
	rt := Attach(host, WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))
	host.mount()

	siblingRan := false
	rt.Effect(func() Cleanup {
		panic("effect boom")
	})
	rt.Effect(func() Cleanup {
		siblingRan = true
		return nil
	})

	if !siblingRan {
		t.Error("a panicking effect must not block sibling registration or execution")
	}
	if len(reported) != 1 {
		t.Errorf("expected 1 reported error, got %d", len(reported))
	}
	if rt.Context().EffectCount() != 2 {
		t.Errorf("failed effect must still be registered, got %d", rt.Context().EffectCount())
	}
}

func TestEffectTeardownReadsCurrentCleanup(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	n := 0
	var lastCleanupRun int
	rt.Effect(func() Cleanup {
		v := n
		return func() { lastCleanupRun = v }
	}, WithDeps(func() []any { return []any{n} }))

	host.mount()
	n = 7
	host.tick()

	// Teardown must invoke the cleanup from the most recent run, not a
	// snapshot from registration time.
	host.unmount()
	if lastCleanupRun != 7 {
		t.Errorf("teardown should run the current cleanup, got value %d", lastCleanupRun)
	}
}

func TestEffectCleanupRunsOnceAtTeardown(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	cleanups := 0
	rt.Effect(func() Cleanup {
		return func() { cleanups++ }
	})

	host.unmount()
	if cleanups != 1 {
		t.Errorf("cleanup should run exactly once at teardown, got %d", cleanups)
	}

	// A stray second pre-unmount must not run it again.
	host.fire(HookBeforeUnmount)
	if cleanups != 1 {
		t.Errorf("cleanup must not run twice, got %d", cleanups)
	}
}
