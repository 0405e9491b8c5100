// Package snapshot provides persistence backends for serialized instance
// state. A host session serializes its reactive roots to JSON and saves the
// snapshot on teardown; a later session with the same instance ID can
// restore it.
//
// Three backends are provided: MemoryStore for single-server deployments,
// SQLStore for any database/sql driver, and S3Store for object storage.
// All implementations are safe for concurrent use.
package snapshot
