package fifo

import "sync"

// Behaviour when a bounded queue is full
type Policy string

const (
	PolicyUnbounded  Policy = "unbounded"   // never full, memory grows with backlog
	PolicyDropOldest Policy = "drop-oldest" // evict head to admit the new item
	PolicyBlock      Policy = "block"       // producer waits for space (or cancellation)
)

// Consumed slots tolerated before the backing array is compacted
const compactFloor int = 64

type Queue[T any] struct {
	Namespace []string
	capacity  int // zero when unbounded
	policy    Policy

	mutex sync.Mutex
	items []T
	head  int // index of first live item in items

	notEmpty  chan struct{} // buffered(1), wakes a waiting consumer
	notFull   chan struct{} // buffered(1), wakes a blocked producer
	closed    chan struct{}
	closeOnce sync.Once

	Metrics *MetricStorage
}
