// Package worker runs background delivery for a tracker: a single goroutine
// that flushes on a timer and on demand, and once more on shutdown.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gametrace/pkg/logger"
)

const defaultInterval = 5 * time.Second

// Flusher is the delivery step the worker drives.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Worker runs until shut down.
type Worker interface {
	// Run starts the loop until ctx is canceled or Shutdown is called.
	Run(ctx context.Context)

	// Shutdown stops the loop and waits for it to exit.
	Shutdown(ctx context.Context) error
}

// AutoFlusher calls Flush on a fixed interval and whenever Trigger is called.
// Only its own goroutine calls Flush, so flushes never overlap.
type AutoFlusher struct {
	flusher    Flusher
	name       string
	interval   time.Duration
	finalFlush bool

	trigger  chan struct{}
	shutdown chan struct{}
	done     chan struct{}
	once     sync.Once

	logger logger.Logger
}

// NewAutoFlusher creates a flusher loop around f.
func NewAutoFlusher(f Flusher, opts ...Option) *AutoFlusher {
	w := &AutoFlusher{
		flusher:    f,
		name:       "flusher",
		interval:   defaultInterval,
		finalFlush: true,
		trigger:    make(chan struct{}, 1),
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker").Named(w.name)
	}
	return w
}

// Trigger requests a flush without waiting for it. Requests made while one
// is already pending collapse into it.
func (w *AutoFlusher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run starts the loop.
func (w *AutoFlusher) Run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			if w.finalFlush {
				w.flush(context.WithoutCancel(ctx))
			}
			return
		case <-ticker.C:
			w.flush(ctx)
		case <-w.trigger:
			w.flush(ctx)
		}
	}
}

func (w *AutoFlusher) flush(ctx context.Context) {
	if err := w.flusher.Flush(ctx); err != nil {
		w.logger.Error(ctx, "flush failed", logger.Error(err))
	}
}

// Shutdown stops the loop, running the final flush if enabled.
func (w *AutoFlusher) Shutdown(ctx context.Context) error {
	w.once.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
