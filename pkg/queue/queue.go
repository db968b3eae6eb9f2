package queue

import "errors"

// ErrQueueFull is returned by Enqueue when the buffer has no free slot.
var ErrQueueFull = errors.New("queue is full")

// Queue represents a basic bounded queue consumed through a channel.
type Queue[T any] interface {
	Enqueue(item T) error
	Chan() <-chan T
	Clear() int
}
