package buffer

import "sync"

// Queue is an unbounded, thread-safe FIFO backed by a ring that doubles
// when full. Producers never block; consumers poll with TryPop/Drain or
// wait on Ready.
type Queue[T any] struct {
	mu     sync.Mutex
	ring   []T
	head   int // next read
	count  int
	closed bool

	ready chan struct{}

	// Stats
	pushed    int64
	popped    int64
	grows     int
	highWater int
}

// New creates a queue with room for initialCapacity items before growing.
func New[T any](initialCapacity int) *Queue[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Queue[T]{
		ring:  make([]T, initialCapacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends item. Returns false if the queue is closed.
func (q *Queue[T]) Push(item T) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.count == len(q.ring) {
		q.growLocked()
	}
	q.ring[(q.head+q.count)%len(q.ring)] = item
	q.count++
	q.pushed++
	if q.count > q.highWater {
		q.highWater = q.count
	}
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// TryPop removes the oldest item without blocking.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if q.count == 0 {
		return zero, false
	}
	item := q.ring[q.head]
	q.ring[q.head] = zero
	q.head = (q.head + 1) % len(q.ring)
	q.count--
	q.popped++
	return item, true
}

// Drain removes up to max items (all of them if max <= 0) in FIFO order.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		return nil
	}
	n := q.count
	if max > 0 && max < n {
		n = max
	}

	var zero T
	out := make([]T, n)
	for i := range out {
		out[i] = q.ring[q.head]
		q.ring[q.head] = zero
		q.head = (q.head + 1) % len(q.ring)
	}
	q.count -= n
	q.popped += int64(n)
	return out
}

// Ready is signalled after a Push. A single signal may cover many items,
// so consumers should Drain until empty after each wake-up.
func (q *Queue[T]) Ready() <-chan struct{} {
	return q.ready
}

// Close rejects further pushes. Items already queued can still be popped.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Stats returns a snapshot of queue counters.
func (q *Queue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return Stats{
		Len:       q.count,
		Capacity:  len(q.ring),
		Pushed:    q.pushed,
		Popped:    q.popped,
		Grows:     q.grows,
		HighWater: q.highWater,
	}
}

// Stats contains queue counters.
type Stats struct {
	Len       int
	Capacity  int
	Pushed    int64
	Popped    int64
	Grows     int
	HighWater int
}

// growLocked doubles the ring, unwrapping items to start at index 0.
func (q *Queue[T]) growLocked() {
	next := make([]T, len(q.ring)*2)
	n := copy(next, q.ring[q.head:])
	if n < q.count {
		copy(next[n:], q.ring[:q.count-n])
	}
	q.ring = next
	q.head = 0
	q.grows++
}
