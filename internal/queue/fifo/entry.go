// FIFO queue linking worker units. Unbounded by default; optionally bounded with a
// drop-oldest or block-producer policy.
package fifo

import (
	"context"
	"fmt"
	"logpush/internal/global"
	"time"
)

// Creates a new queue. Capacity is ignored for the unbounded policy.
func New[T any](namespace []string, capacity int, policy Policy) (new *Queue[T], err error) {
	if policy == "" {
		policy = PolicyUnbounded
	}
	switch policy {
	case PolicyUnbounded:
		capacity = 0
	case PolicyDropOldest, PolicyBlock:
		if capacity < 1 {
			err = fmt.Errorf("queue policy %q requires a capacity of at least 1", policy)
			return
		}
	default:
		err = fmt.Errorf("unknown queue policy %q", policy)
		return
	}

	new = &Queue[T]{
		Namespace: append(append([]string(nil), namespace...), global.NSQueue),
		capacity:  capacity,
		policy:    policy,
		notEmpty:  make(chan struct{}, 1),
		notFull:   make(chan struct{}, 1),
		closed:    make(chan struct{}),
		Metrics:   &MetricStorage{},
	}
	return
}

// Parses a configured policy name (empty means unbounded)
func ParsePolicy(name string) (policy Policy, err error) {
	policy = Policy(name)
	switch policy {
	case "":
		policy = PolicyUnbounded
	case PolicyUnbounded, PolicyDropOldest, PolicyBlock:
	default:
		err = fmt.Errorf("unknown queue policy %q (expected %s, %s or %s)", name, PolicyUnbounded, PolicyDropOldest, PolicyBlock)
	}
	return
}

// Appends value to the tail.
// Returns false when the queue is closed, or when a blocking push is cancelled.
func (queue *Queue[T]) Push(ctx context.Context, value T) (success bool) {
	for {
		queue.mutex.Lock()
		if queue.isClosed() {
			queue.mutex.Unlock()
			queue.Metrics.Dropped.Add(1)
			return
		}

		if queue.capacity == 0 || queue.lenLocked() < queue.capacity {
			queue.appendLocked(value)
			queue.mutex.Unlock()
			success = true
			return
		}

		if queue.policy == PolicyDropOldest {
			var zero T
			queue.items[queue.head] = zero
			queue.head++
			queue.compactLocked()
			queue.Metrics.Depth.Add(-1)
			queue.Metrics.Dropped.Add(1)
			queue.appendLocked(value)
			queue.mutex.Unlock()
			success = true
			return
		}
		queue.mutex.Unlock()

		// Block policy: wait for a consumer to make room
		select {
		case <-ctx.Done():
			return
		case <-queue.closed:
		case <-queue.notFull:
		}
	}
}

// Removes the head item, waiting up to wait for one to arrive.
// A zero wait never blocks. Returns false on timeout, cancellation, or closed and drained.
func (queue *Queue[T]) Pop(ctx context.Context, wait time.Duration) (out T, success bool) {
	var timeout <-chan time.Time
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		queue.mutex.Lock()
		if queue.lenLocked() > 0 {
			out = queue.popLocked()
			queue.mutex.Unlock()
			success = true
			return
		}
		closed := queue.isClosed()
		queue.mutex.Unlock()

		if closed || timeout == nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-timeout:
			return
		case <-queue.closed:
		case <-queue.notEmpty:
		}
	}
}

// Non-blocking pop
func (queue *Queue[T]) TryPop() (out T, success bool) {
	out, success = queue.Pop(context.Background(), 0)
	return
}

// Removes and returns every queued item in FIFO order
func (queue *Queue[T]) Drain() (items []T) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()

	count := queue.lenLocked()
	if count == 0 {
		return
	}
	items = make([]T, count)
	copy(items, queue.items[queue.head:])
	queue.items = nil
	queue.head = 0
	queue.Metrics.Depth.Add(-int64(count))
	queue.Metrics.Popped.Add(uint64(count))
	queue.signal(queue.notFull)
	return
}

// Current number of queued items
func (queue *Queue[T]) Len() (count int) {
	queue.mutex.Lock()
	defer queue.mutex.Unlock()
	count = queue.lenLocked()
	return
}

func (queue *Queue[T]) Capacity() (capacity int) {
	capacity = queue.capacity
	return
}

func (queue *Queue[T]) Policy() (policy Policy) {
	policy = queue.policy
	return
}

// Refuses further pushes and wakes all waiters. Queued items can still be popped.
func (queue *Queue[T]) Close() {
	queue.closeOnce.Do(func() {
		queue.mutex.Lock()
		close(queue.closed)
		queue.mutex.Unlock()
	})
}

func (queue *Queue[T]) isClosed() (closed bool) {
	select {
	case <-queue.closed:
		closed = true
	default:
	}
	return
}

func (queue *Queue[T]) lenLocked() (count int) {
	count = len(queue.items) - queue.head
	return
}

func (queue *Queue[T]) appendLocked(value T) {
	queue.items = append(queue.items, value)
	queue.Metrics.Depth.Add(1)
	queue.Metrics.Pushed.Add(1)
	queue.signal(queue.notEmpty)
}

func (queue *Queue[T]) popLocked() (out T) {
	var zero T
	out = queue.items[queue.head]
	queue.items[queue.head] = zero
	queue.head++
	queue.compactLocked()

	queue.Metrics.Depth.Add(-1)
	queue.Metrics.Popped.Add(1)
	queue.signal(queue.notFull)
	return
}

// Reclaims the consumed prefix once it dominates the backing array.
// Keeps the backing array within twice the live items (plus a small floor).
func (queue *Queue[T]) compactLocked() {
	if queue.head <= compactFloor || queue.head*2 < len(queue.items) {
		return
	}
	remaining := copy(queue.items, queue.items[queue.head:])
	clear(queue.items[remaining:])
	queue.items = queue.items[:remaining]
	queue.head = 0
}

// Non-blocking wake of at most one waiter
func (queue *Queue[T]) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
