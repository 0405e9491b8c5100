package server

import "github.com/reflow-dev/reflow/pkg/reflow"

// Component is the application-facing unit a session hosts. Setup runs once
// after the runtime attaches and registers the component's reactive state,
// computeds, effects, and watchers. Render produces the HTML frame shipped
// to the client after each pass.
type Component interface {
	Setup(rt *reflow.Runtime)
	Render() string
}

// EventHandler is implemented by components that respond to client events.
// Payload holds the decoded JSON body of the event frame.
type EventHandler interface {
	HandleEvent(name string, payload map[string]any) error
}

// Snapshotter is implemented by components whose state survives
// disconnects. Snapshot runs on session close; Restore runs before Setup
// when a prior snapshot exists for the instance ID.
type Snapshotter interface {
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}
