package model

import "errors"

// Sentinel kinds for registry and event errors.
var (
	ErrDuplicateID   = errors.New("household id already registered")
	ErrNotFound      = errors.New("household not found")
	ErrInvalidWeight = errors.New("invalid weight: must be a positive number")
	ErrInvalidID     = errors.New("household id must not be empty")
)
