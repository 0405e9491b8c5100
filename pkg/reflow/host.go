package reflow

// Hook identifies a host lifecycle hook slot the runtime binds to.
type Hook uint8

const (
	// HookMount fires once when the host instance has mounted.
	HookMount Hook = iota + 1

	// HookBeforeUpdate fires before every host re-render.
	HookBeforeUpdate

	// HookBeforeUnmount fires before the host instance is torn down.
	HookBeforeUnmount

	// HookUnmounted fires after the host instance has been torn down.
	HookUnmounted
)

// String returns a human-readable name for the hook.
func (h Hook) String() string {
	switch h {
	case HookMount:
		return "mount"
	case HookBeforeUpdate:
		return "before-update"
	case HookBeforeUnmount:
		return "before-unmount"
	case HookUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Host is the contract the runtime consumes from a host instance.
//
// Update requests a re-render; it must be synchronous and idempotent. The
// runtime calls it directly from the container write/delete path and
// reports (rather than silently swallows) any error it returns.
//
// OnHook appends a callback to the ordered list for the given hook slot.
// Callbacks registered earlier run earlier; the host must never replace or
// reorder previously registered callbacks.
//
// Mounted reports whether the instance has passed its mount point. It is
// used only to decide whether a newly registered effect fires immediately
// or is deferred to the mount hook.
type Host interface {
	Update() error
	OnHook(h Hook, fn func())
	Mounted() bool
}
