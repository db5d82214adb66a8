// Helpers that wait on atomic counters shared between goroutines
package atomics

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	zeroStreakRequired int           = 3 // consecutive zero reads before a counter counts as settled
	initialBackoff     time.Duration = 20 * time.Millisecond
	maxBackoff         time.Duration = 500 * time.Millisecond
)

// Waits until the counter reads zero several times in a row.
// Gives up at the deadline of ctx and reports the last value seen.
func WaitUntilZero(ctx context.Context, value *atomic.Int64) (reachedZero bool, lastValue int64) {
	backoff := initialBackoff
	zeroStreak := 0

	for {
		lastValue = value.Load()
		if lastValue <= 0 {
			zeroStreak++
			if zeroStreak >= zeroStreakRequired {
				reachedZero = true
				return
			}
		} else {
			zeroStreak = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		// Zero streaks are confirmed quickly, non-zero values back off
		if zeroStreak == 0 {
			backoff = min(backoff*2, maxBackoff)
		}
	}
}
