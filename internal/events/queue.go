package events

import "sync"

// Queue is the hand-off between the input goroutine and the main loop.
// One producer calls Append, one consumer calls Drain once per tick.
// Both go through the same mutex, so a drain sees a consistent prefix
// of the appends that happened before it.
type Queue struct {
	mu    sync.Mutex
	items []Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Append adds an event at the tail. It never waits on anything but the
// short critical section of a concurrent Drain.
func (q *Queue) Append(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, e)
}

// Drain removes and returns every queued event in append order.
// It returns nil when nothing is queued.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
