package fifo

import "sync/atomic"

type MetricStorage struct {
	Depth   atomic.Int64  // Current items in queue
	Pushed  atomic.Uint64 // accepted items
	Popped  atomic.Uint64 // items handed to consumers
	Dropped atomic.Uint64 // items evicted by drop-oldest or refused after close
}
