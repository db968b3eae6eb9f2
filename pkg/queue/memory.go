// queue package

package queue

import "sync"

const (
	// QueueBufferSize represents the default maximum size of a queue
	QueueBufferSize = 64
)

// InMemoryQueue implements a bounded, channel-backed in-memory queue.
type InMemoryQueue[T any] struct {
	ch   chan T
	lock sync.Mutex
}

// NewInMemoryQueue creates a new queue holding at most size items.
// A non-positive size uses QueueBufferSize.
func NewInMemoryQueue[T any](size int) *InMemoryQueue[T] {
	if size <= 0 {
		size = QueueBufferSize
	}
	return &InMemoryQueue[T]{
		ch: make(chan T, size),
	}
}

// Enqueue adds an item to the end of the queue without blocking.
func (q *InMemoryQueue[T]) Enqueue(item T) error {
	q.lock.Lock()
	defer q.lock.Unlock()
	select {
	case q.ch <- item:
		return nil
	default:
		return ErrQueueFull
	}
}

// Chan exposes the queue for use in a select.
func (q *InMemoryQueue[T]) Chan() <-chan T {
	return q.ch
}

// Clear drops all pending items and returns how many were dropped.
// It never blocks, so a concurrent receiver may take items first.
func (q *InMemoryQueue[T]) Clear() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}
