package simulate

import "errors"

// ErrInvalidConfig reports a simulation config that cannot run.
var ErrInvalidConfig = errors.New("invalid simulation config")
