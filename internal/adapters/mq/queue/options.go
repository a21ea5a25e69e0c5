package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the queue. Zero, the default, means unbounded.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// WithInitialSize preallocates room for size events.
func WithInitialSize(size int) Option {
	return func(q *InMemoryQueue) {
		if size > 0 {
			q.initialSize = size
		}
	}
}
