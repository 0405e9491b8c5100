package snapshot

import (
	"context"
	"sync"
	"time"

	rferrors "github.com/reflow-dev/reflow/internal/errors"
)

// MemoryStore keeps snapshots in process memory. It's the default store
// and suitable for single-server deployments; for multi-server deployments
// use SQLStore or S3Store.
//
// Expiry is enforced two ways: a load that finds only an expired snapshot
// removes it on the spot, and a background sweep purges whatever loads
// never touch. MemoryStats exposes hit, miss, and expiry accounting so a
// host can judge whether its SnapshotTTL is long enough for real resume
// traffic.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	stats   MemoryStats
	closed  bool
	done    chan struct{}
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// MemoryStats counts store activity since creation. Bytes is the payload
// currently held, not a running total.
type MemoryStats struct {
	Saves   uint64
	Hits    uint64
	Misses  uint64
	Expired uint64 // loads that found only an expired snapshot
	Purged  uint64 // entries removed by the background sweep
	Bytes   int64
}

// MemoryStoreOption configures MemoryStore behavior.
type MemoryStoreOption func(*memoryStoreConfig)

type memoryStoreConfig struct {
	sweepInterval time.Duration
}

// WithCleanupInterval sets how often the background sweep purges expired
// snapshots. Default: 1 minute.
func WithCleanupInterval(d time.Duration) MemoryStoreOption {
	return func(c *memoryStoreConfig) {
		c.sweepInterval = d
	}
}

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	cfg := &memoryStoreConfig{
		sweepInterval: 1 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	store := &MemoryStore{
		entries: make(map[string]memoryEntry),
		done:    make(chan struct{}),
	}

	go store.sweepLoop(cfg.sweepInterval)
	return store
}

// Save stores snapshot data with an expiration time. Overwriting an
// instance replaces its payload and resets its expiry.
func (m *MemoryStore) Save(ctx context.Context, instanceID string, data []byte, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return rferrors.FromError(ErrStoreClosed{}, "E201")
	}

	if prev, ok := m.entries[instanceID]; ok {
		m.stats.Bytes -= int64(len(prev.data))
	}

	// Copy so later caller mutations don't leak into the store.
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	m.entries[instanceID] = memoryEntry{
		data:      dataCopy,
		expiresAt: expiresAt,
	}
	m.stats.Saves++
	m.stats.Bytes += int64(len(dataCopy))
	return nil
}

// Load retrieves snapshot data if it exists and hasn't expired. An
// expired snapshot is dropped immediately and loads as missing.
func (m *MemoryStore) Load(ctx context.Context, instanceID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, rferrors.FromError(ErrStoreClosed{}, "E202")
	}

	e, ok := m.entries[instanceID]
	if !ok {
		m.stats.Misses++
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		m.dropLocked(instanceID, e)
		m.stats.Expired++
		return nil, nil
	}

	m.stats.Hits++
	dataCopy := make([]byte, len(e.data))
	copy(dataCopy, e.data)
	return dataCopy, nil
}

// Delete removes a snapshot.
func (m *MemoryStore) Delete(ctx context.Context, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed{}
	}

	if e, ok := m.entries[instanceID]; ok {
		m.dropLocked(instanceID, e)
	}
	return nil
}

// Close stops the sweep loop and releases all snapshots.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	m.entries = nil
	m.stats.Bytes = 0
	return nil
}

// Len returns the number of stored snapshots, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats returns a copy of the store's counters.
func (m *MemoryStore) Stats() MemoryStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *MemoryStore) dropLocked(instanceID string, e memoryEntry) {
	m.stats.Bytes -= int64(len(e.data))
	delete(m.entries, instanceID)
}

func (m *MemoryStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *MemoryStore) sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			m.dropLocked(id, e)
			m.stats.Purged++
		}
	}
}
