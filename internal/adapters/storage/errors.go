package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound       = errors.New("storage: file not found")
	ErrInvalidID      = errors.New("storage: invalid file id")
	ErrUnknownBackend = errors.New("storage: unknown backend")
	ErrClosed         = errors.New("storage: closed")
)
