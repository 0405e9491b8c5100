package reflow

import "sync/atomic"

// globalIDCounter is the source of identity tokens for all registrations.
// Using atomic operations ensures thread-safe ID generation without locks.
var globalIDCounter uint64

// nextID returns the next identity token.
// Tokens are monotonically increasing and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
