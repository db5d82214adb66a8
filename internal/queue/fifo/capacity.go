package fifo

import (
	"logpush/internal/global"

	"github.com/pbnjay/memory"
)

const minDerivedCapacity int = 1024

// Capacity for bounded queues configured without one.
// Allows a backlog of roughly 1/64th of host memory at the estimated envelope size.
func DefaultCapacity() (capacity int) {
	total := memory.TotalMemory()
	capacity = deriveCapacity(total)
	return
}

func deriveCapacity(totalMemory uint64) (capacity int) {
	if totalMemory == 0 {
		capacity = minDerivedCapacity
		return
	}

	items := totalMemory / 64 / global.EstimatedEnvelopeBytes
	switch {
	case items < uint64(minDerivedCapacity):
		capacity = minDerivedCapacity
	case items > uint64(global.MaxDerivedQueueCapacity):
		capacity = global.MaxDerivedQueueCapacity
	default:
		capacity = int(items)
	}
	return
}
