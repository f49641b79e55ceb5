// Package queue provides a generic FIFO buffer.
package queue

import "errors"

// ErrQueueFull is returned when pushing onto a bounded queue at capacity.
var ErrQueueFull = errors.New("queue is full")

// Queue is a FIFO of values. It is not safe for concurrent use; owners
// serialize access with their own lock.
type Queue[T any] struct {
	entries []T
	maxSize int
}

// New creates a Queue. A maxSize <= 0 means the queue is unbounded.
func New[T any](maxSize int) *Queue[T] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &Queue[T]{
		entries: make([]T, 0),
		maxSize: maxSize,
	}
}

// Push adds v to the back of the queue.
// Returns ErrQueueFull if the queue is bounded and at capacity.
func (q *Queue[T]) Push(v T) error {
	if q.maxSize > 0 && len(q.entries) >= q.maxSize {
		return ErrQueueFull
	}
	q.entries = append(q.entries, v)
	return nil
}

// Pop removes and returns the value at the front of the queue.
// Returns (zero value, false) if the queue is empty.
func (q *Queue[T]) Pop() (T, bool) {
	var zero T
	if len(q.entries) == 0 {
		return zero, false
	}

	v := q.entries[0]
	q.entries[0] = zero // release the reference for GC
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		q.entries = q.entries[:0:0]
	}
	return v, true
}

// Len returns the number of queued values.
func (q *Queue[T]) Len() int {
	return len(q.entries)
}

// Drain removes and returns all values, leaving the queue empty.
// Returns an empty slice if the queue was already empty.
func (q *Queue[T]) Drain() []T {
	if len(q.entries) == 0 {
		return []T{}
	}

	result := q.entries
	q.entries = make([]T, 0)
	return result
}
