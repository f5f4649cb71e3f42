package store

import (
	"context"
	"sync"

	"github.com/supersteps/graphrun/graph"
)

// MemoryStore is an in-memory graph.CheckpointStore.
//
// It keeps at most one checkpoint in memory, overwritten atomically under a
// mutex on every SaveCheckpoint. Designed for testing, development, and
// short-lived single-process runs; data is lost when the process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	has     bool
	step    int
	pending graph.PendingMap
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// SaveCheckpoint replaces the stored (step, pending) under the store's lock.
func (m *MemoryStore) SaveCheckpoint(_ context.Context, step int, pending graph.PendingMap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.step = step
	m.pending = pending
	m.has = true
	return nil
}

// LoadCheckpoint returns the most recently saved (step, pending).
func (m *MemoryStore) LoadCheckpoint(_ context.Context) (int, graph.PendingMap, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.has {
		return 0, nil, false, nil
	}
	return m.step, m.pending, true, nil
}

// ClearCheckpoints discards any saved checkpoint.
func (m *MemoryStore) ClearCheckpoints(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.has = false
	m.step = 0
	m.pending = nil
	return nil
}
