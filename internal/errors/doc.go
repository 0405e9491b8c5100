// Package errors provides coded, structured errors for Reflow.
//
// Every error the runtime reports carries a stable code (e.g. "E002") and
// is rendered with the fixed "[REFLOW Exxx]" prefix so reflow errors are
// distinguishable from host-framework errors in the same log stream.
//
// # Error Categories
//
// Errors are organized into categories:
//   - runtime: reactivity engine errors (failed derivations, effect panics)
//   - protocol: wire errors (invalid frames, connection issues)
//   - persistence: snapshot store errors
//   - config: configuration errors
//
// # Usage
//
//	err := errors.New("E002").Wrap(cause)
//	logger.Error(err.Error())
//	// [REFLOW E002] Computed getter failed: division by zero
package errors
