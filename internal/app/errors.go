package service

import "errors"

var (
	// ErrNotStarted is returned by mutations and saves before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrSnapshotNotSaved marks a Save whose snapshot write failed. Errors
	// from Save without it come from the dump or metrics export and leave
	// the snapshot committed.
	ErrSnapshotNotSaved = errors.New("snapshot not saved")
)
