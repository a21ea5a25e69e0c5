package app

import "errors"

// Sentinel kinds for tracker lifecycle errors. Trace validation errors use
// the trace package kinds.
var (
	ErrNotStarted     = errors.New("tracker not started")
	ErrAlreadyStarted = errors.New("tracker already started")
	ErrNoStorage      = errors.New("local storage mode needs a storage capability")
	ErrNoTrackingCode = errors.New("tracking code is required")
	ErrLogin          = errors.New("login failed")
)
