package worker

import (
	"time"

	"github.com/okian/gametrace/pkg/logger"
)

// Option applies a configuration option to the AutoFlusher.
type Option func(*AutoFlusher)

// WithName sets the flusher name for identification and logging.
func WithName(name string) Option {
	return func(w *AutoFlusher) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the flusher.
func WithLogger(logger logger.Logger) Option {
	return func(w *AutoFlusher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithInterval sets the period between automatic flushes.
func WithInterval(d time.Duration) Option {
	return func(w *AutoFlusher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithFinalFlush controls whether Shutdown runs one last flush.
func WithFinalFlush(enabled bool) Option {
	return func(w *AutoFlusher) {
		w.finalFlush = enabled
	}
}
