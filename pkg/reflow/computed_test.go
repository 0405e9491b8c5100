package reflow

import (
	"errors"
	"testing"
)

func TestComputedCaching(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	calls := 0
	doubled := NewComputed(rt, func() (int, error) {
		calls++
		return 21 * 2, nil
	})

	for i := 0; i < 5; i++ {
		v, err := doubled.Value()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 42 {
			t.Errorf("expected 42, got %d", v)
		}
	}

	if calls != 1 {
		t.Errorf("getter should run exactly once between dirty-markings, got %d", calls)
	}
}

func TestComputedCoarseInvalidation(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	calls := 0
	c := NewComputed(rt, func() (int, error) {
		calls++
		return calls, nil
	})

	if _, err := c.Value(); err != nil {
		t.Fatal(err)
	}

	// Marking dirty forces exactly one more recomputation, even though no
	// data the getter reads actually changed.
	c.MarkDirty()
	if v, _ := c.Value(); v != 2 {
		t.Errorf("expected recomputed value 2, got %d", v)
	}
	if _, err := c.Value(); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("expected exactly 2 getter calls, got %d", calls)
	}
}

func TestComputedDirtyOnEveryPass(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)
	host.mount()

	calls := 0
	c := NewComputed(rt, func() (int, error) {
		calls++
		return calls, nil
	})

	c.Value()
	host.tick()
	c.Value()

	if calls != 2 {
		t.Errorf("pre-update pass should mark the cell dirty, got %d calls", calls)
	}
}

func TestComputedErrorPropagation(t *testing.T) {
	host := newTestHost()

	var reported []error
	rt := Attach(host, WithErrorHandler(func(err error) {
		reported = append(reported, err)
	}))

	fail := true
	boom := errors.New("boom")
	c := NewComputed(rt, func() (int, error) {
		if fail {
			return 0, boom
		}
		return 7, nil
	})

	// Every read of a failing cell raises the same error; no stale or zero
	// data is silently cached.
	for i := 0; i < 3; i++ {
		if _, err := c.Value(); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if len(reported) != 3 {
		t.Errorf("expected 3 reported errors, got %d", len(reported))
	}

	// The cell is still dirty, so a now-succeeding getter runs.
	fail = false
	v, err := c.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 {
		t.Errorf("expected 7, got %d", v)
	}
}

func TestComputedGetterPanicBecomesError(t *testing.T) {
	host := newTestHost()
	rt := Attach(host, discardErrors())

	c := NewComputed(rt, func() (int, error) {
		panic("kaboom")
	})

	if _, err := c.Value(); err == nil {
		t.Error("a panicking getter should surface as an error")
	}
}

func TestComputedGroup(t *testing.T) {
	host := newTestHost()
	rt := Attach(host)

	calls := map[string]int{}
	group := NewComputedGroup(rt, map[string]func() (any, error){
		"a": func() (any, error) { calls["a"]++; return 1, nil },
		"b": func() (any, error) { calls["b"]++; return 2, nil },
	})

	if len(group) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(group))
	}

	// Independently cached.
	group["a"].Value()
	group["a"].Value()
	if calls["a"] != 1 || calls["b"] != 0 {
		t.Errorf("cells must cache independently, got %v", calls)
	}

	if v, _ := group["b"].Value(); v != 2 {
		t.Errorf("expected 2, got %v", v)
	}
	if rt.Context().ComputedCount() != 2 {
		t.Errorf("expected 2 registered cells, got %d", rt.Context().ComputedCount())
	}
}
