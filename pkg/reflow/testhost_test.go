package reflow

import "errors"

var errTest = errors.New("test error")

// testHost is a minimal Host implementation driven manually by tests.
// It records Update calls and fires hooks the way a real host would:
// mount flips the mounted flag first, unmount fires before-unmount then
// unmounted.
type testHost struct {
	hooks     map[Hook][]func()
	mounted   bool
	updates   int
	updateErr error
}

func newTestHost() *testHost {
	return &testHost{hooks: make(map[Hook][]func())}
}

func (h *testHost) Update() error {
	h.updates++
	return h.updateErr
}

func (h *testHost) OnHook(hook Hook, fn func()) {
	h.hooks[hook] = append(h.hooks[hook], fn)
}

func (h *testHost) Mounted() bool {
	return h.mounted
}

func (h *testHost) fire(hook Hook) {
	for _, fn := range h.hooks[hook] {
		fn()
	}
}

func (h *testHost) mount() {
	h.mounted = true
	h.fire(HookMount)
}

// tick simulates one pre-update pass, as the host would run it before
// re-rendering.
func (h *testHost) tick() {
	h.fire(HookBeforeUpdate)
}

func (h *testHost) unmount() {
	h.fire(HookBeforeUnmount)
	h.mounted = false
	h.fire(HookUnmounted)
}

// discardErrors silences reported errors during tests that provoke them.
func discardErrors() Option {
	return WithErrorHandler(func(error) {})
}
