// Package queue provides the unbounded FIFO handoff between producer
// goroutines (file watcher, WebSocket client) and the single tick driver.
// Pushes never block and nothing is dropped; the consumer drains whatever
// is pending once per tick.
package queue

import "sync"

// Queue is an unbounded multi-producer, single-consumer FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends an item. Never blocks.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// DrainAll removes and returns every pending item in arrival order.
// An empty result is the normal "nothing to do this tick" case.
func (q *Queue[T]) DrainAll() []T {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len returns the number of pending items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
