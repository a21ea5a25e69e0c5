// Package queue holds trace events between the moment they are traced and
// the moment the flusher reads them into a batch.
//
// Producers may enqueue from any goroutine. Reading the front is split into
// Peek and Drop so a batch can be serialized before it leaves the queue;
// both run under the same lock as Enqueue, so a batch never interleaves with
// concurrent producers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/gametrace/internal/domain/trace"
	"github.com/okian/gametrace/pkg/metrics"
)

const defaultInitialSize = 64

// Event is the payload type flowing through the queue.
type Event = trace.Event

// Queue is an ordered FIFO of trace events.
type Queue interface {
	// Enqueue appends e. It returns ErrFull when the queue is at capacity.
	Enqueue(ctx context.Context, e Event) error

	// Peek returns copies of up to n events from the front without removing
	// them. n <= 0 means all.
	Peek(n int) []Event

	// Drop removes up to n events from the front and returns how many left.
	Drop(n int) int

	// Len returns the current number of queued events.
	Len() int

	// Clear discards every queued event.
	Clear()
}

// InMemoryQueue implements Queue with a mutex-guarded slice.
type InMemoryQueue struct {
	mu          sync.Mutex
	events      []Event
	capacity    int
	initialSize int
}

// NewInMemoryQueue creates an empty queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{initialSize: defaultInitialSize}
	for _, opt := range opts {
		opt(q)
	}
	q.events = make([]Event, 0, q.initialSize)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue appends e to the back of the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) error { //nolint:gocritic // events are values
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.capacity > 0 && len(q.events) >= q.capacity {
		return ErrFull
	}
	q.events = append(q.events, e)
	metrics.UpdateQueueSize(len(q.events))
	return nil
}

// Peek returns copies of up to n front events.
func (q *InMemoryQueue) Peek(n int) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.events) {
		n = len(q.events)
	}
	out := make([]Event, n)
	copy(out, q.events[:n])
	return out
}

// Drop removes up to n front events.
func (q *InMemoryQueue) Drop(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.events) {
		n = len(q.events)
	}
	// Zero the dropped slots so their results can be collected.
	clear(q.events[:n])
	q.events = q.events[n:]
	if len(q.events) == 0 {
		q.events = make([]Event, 0, q.initialSize)
	}
	metrics.UpdateQueueSize(len(q.events))
	return n
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Clear discards every queued event.
func (q *InMemoryQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = make([]Event, 0, q.initialSize)
	metrics.UpdateQueueSize(0)
}
