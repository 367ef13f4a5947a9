// Package repository persists the household registry as a versioned snapshot.
package repository

import "context"

// Store saves and restores complete registry snapshots.
type Store interface {
	// Save replaces any previously saved snapshot with snap.
	Save(ctx context.Context, snap Snapshot) error

	// Load returns the last saved snapshot.
	// Returns ErrNoSnapshot if nothing has been saved yet.
	Load(ctx context.Context) (Snapshot, error)

	// Close releases the underlying resources.
	Close() error
}
