package collector

import "errors"

// Sentinel kinds for collector errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnknownCode   = errors.New("unknown tracking code")
	ErrInjectedFault = errors.New("injected failure")
)
