package transport

import "errors"

// Sentinel kinds for transport errors.
var (
	ErrStatus   = errors.New("transport: unexpected status")
	ErrNoClient = errors.New("transport: no client configured")
)
