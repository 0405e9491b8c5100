// Package server hosts reflow runtimes over WebSocket connections.
//
// Each connected client gets a Session, which implements reflow.Host: the
// session owns one component, runs the reactivity pass before every render,
// and ships rendered HTML frames to the client. The SessionManager enforces
// session limits and persists component snapshots across reconnects when a
// snapshot store is configured.
package server
