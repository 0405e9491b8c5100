package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Runtime Errors (E001-E099)
	// ============================================

	"E001": {
		Category: CategoryRuntime,
		Message:  "Re-render request failed",
		Detail:   "The host's Update() returned an error while a reactive write or delete was being committed. The mutation itself has already taken effect.",
		DocURL:   "https://reflow.dev/docs/errors/E001",
	},
	"E002": {
		Category: CategoryRuntime,
		Message:  "Computed getter failed",
		Detail:   "A computed cell's getter returned an error. The cached value was not updated and the cell remains dirty; the error is also returned to the reader.",
		DocURL:   "https://reflow.dev/docs/errors/E002",
	},
	"E003": {
		Category: CategoryRuntime,
		Message:  "Effect failed",
		Detail:   "An effect body or its cleanup panicked. The failure was contained and sibling effects were not affected.",
		DocURL:   "https://reflow.dev/docs/errors/E003",
	},
	"E004": {
		Category: CategoryRuntime,
		Message:  "Watch failed",
		Detail:   "A watcher's getter or callback failed. A getter failure at registration aborts the registration; a getter failure during a later pass skips that pass only.",
		DocURL:   "https://reflow.dev/docs/errors/E004",
	},
	"E005": {
		Category: CategoryRuntime,
		Message:  "Runtime detached",
		Detail:   "A reactive primitive was called on a runtime that has been detached from its host or whose host has unmounted.",
		DocURL:   "https://reflow.dev/docs/errors/E005",
	},
	"E006": {
		Category: CategoryRuntime,
		Message:  "Teardown cleanup failed",
		Detail:   "A registered cleanup panicked during pre-unmount. Remaining cleanups still ran.",
		DocURL:   "https://reflow.dev/docs/errors/E006",
	},

	// ============================================
	// Warnings (W001-W099)
	// ============================================

	"W001": {
		Category: CategoryRuntime,
		Message:  "Deep watching is not supported",
		Detail:   "WatchObject was called with Deep: true. Structural watching of whole object graphs is not implemented; the watcher behaves as a shallow watch.",
		DocURL:   "https://reflow.dev/docs/errors/W001",
	},

	// ============================================
	// Protocol Errors (E101-E199)
	// ============================================

	"E101": {
		Category: CategoryProtocol,
		Message:  "WebSocket write failed",
		Detail:   "A frame could not be written to the client connection. The session will be closed.",
		DocURL:   "https://reflow.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryProtocol,
		Message:  "Event decode failed",
		Detail:   "An incoming client frame could not be decoded and was dropped.",
		DocURL:   "https://reflow.dev/docs/errors/E102",
	},
	"E103": {
		Category: CategoryProtocol,
		Message:  "Session limit reached",
		Detail:   "The server refused a new session because the configured session limit was reached.",
		DocURL:   "https://reflow.dev/docs/errors/E103",
	},

	// ============================================
	// Persistence Errors (E201-E299)
	// ============================================

	"E201": {
		Category: CategoryPersistence,
		Message:  "Snapshot save failed",
		Detail:   "The session's state snapshot could not be persisted to the configured store.",
		DocURL:   "https://reflow.dev/docs/errors/E201",
	},
	"E202": {
		Category: CategoryPersistence,
		Message:  "Snapshot load failed",
		Detail:   "A previously persisted state snapshot could not be loaded or decoded.",
		DocURL:   "https://reflow.dev/docs/errors/E202",
	},
}

// Lookup returns the template for a code, if registered.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
