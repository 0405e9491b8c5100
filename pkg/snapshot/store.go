package snapshot

import (
	"context"
	"time"
)

// Store defines the interface for snapshot persistence backends.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists a state snapshot. If instanceID already exists, it is
	// overwritten. The expiresAt parameter indicates when the snapshot
	// should expire.
	Save(ctx context.Context, instanceID string, data []byte, expiresAt time.Time) error

	// Load retrieves a snapshot by instance ID.
	// Returns (nil, nil) if the snapshot doesn't exist or has expired.
	Load(ctx context.Context, instanceID string) ([]byte, error)

	// Delete removes a snapshot. It is not an error if the snapshot
	// doesn't exist.
	Delete(ctx context.Context, instanceID string) error

	// Close releases any resources held by the store.
	Close() error
}

// ErrStoreClosed is returned when a store is used after Close.
type ErrStoreClosed struct{}

func (ErrStoreClosed) Error() string {
	return "snapshot: store is closed"
}
