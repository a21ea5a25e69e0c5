package codec

import "errors"

// Sentinel kinds for codec configuration errors. Wire-level failures use
// the trace error kinds.
var (
	ErrUnknownFormat = errors.New("unknown trace format")
)
