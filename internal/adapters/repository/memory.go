package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps the last snapshot in process memory. Nothing survives a
// restart; it backs tests and sessions started without a snapshot path.
type MemoryStore struct {
	mu     sync.Mutex
	snap   *Snapshot
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	c := snap.clone()
	m.snap = &c
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Snapshot{}, ErrClosed
	}
	if m.snap == nil {
		return Snapshot{}, ErrNoSnapshot
	}
	return m.snap.clone(), nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
