package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNoSnapshot         = errors.New("no saved snapshot")
	ErrCorruptSnapshot    = errors.New("corrupt snapshot")
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	ErrClosed             = errors.New("store closed")
)
