package fifo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		policy   Policy
		wantCap  int
		wantErr  bool
	}{
		{"default policy", 10, "", 0, false},
		{"unbounded ignores capacity", 10, PolicyUnbounded, 0, false},
		{"drop oldest", 3, PolicyDropOldest, 3, false},
		{"block", 1, PolicyBlock, 1, false},
		{"bounded without capacity", 0, PolicyBlock, 0, true},
		{"unknown policy", 5, Policy("lifo"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, err := New[int]([]string{"test"}, tt.capacity, tt.policy)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCap, queue.Capacity())
		})
	}
}

func TestParsePolicy(t *testing.T) {
	policy, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyUnbounded, policy)

	policy, err = ParsePolicy("drop-oldest")
	require.NoError(t, err)
	assert.Equal(t, PolicyDropOldest, policy)

	_, err = ParsePolicy("newest")
	assert.Error(t, err)
}

func TestFIFOOrder(t *testing.T) {
	queue, err := New[string](nil, 0, PolicyUnbounded)
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "c"} {
		require.True(t, queue.Push(context.Background(), v))
	}
	assert.Equal(t, 3, queue.Len())

	var got []string
	for {
		v, ok := queue.TryPop()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, int64(0), queue.Metrics.Depth.Load())
	assert.Equal(t, uint64(3), queue.Metrics.Popped.Load())
}

func TestOrderSurvivesCompaction(t *testing.T) {
	queue, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)

	next := 0
	for i := 0; i < 1000; i++ {
		queue.Push(context.Background(), i)
		if i%3 == 0 {
			v, ok := queue.TryPop()
			require.True(t, ok)
			require.Equal(t, next, v)
			next++
		}
	}
	for _, v := range queue.Drain() {
		require.Equal(t, next, v)
		next++
	}
	assert.Equal(t, 1000, next)
}

func TestPopEmptyTimesOut(t *testing.T) {
	queue, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)

	start := time.Now()
	_, ok := queue.Pop(context.Background(), 50*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	_, ok = queue.TryPop()
	assert.False(t, ok)
}

func TestPopWakesOnPush(t *testing.T) {
	queue, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		queue.Push(context.Background(), 7)
	}()

	v, ok := queue.Pop(context.Background(), 2*time.Second)
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestPopCancelled(t *testing.T) {
	queue, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := queue.Pop(ctx, time.Minute)
	assert.False(t, ok)
}

func TestDropOldest(t *testing.T) {
	queue, err := New[int](nil, 2, PolicyDropOldest)
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		require.True(t, queue.Push(context.Background(), i))
	}
	assert.Equal(t, []int{3, 4}, queue.Drain())
	assert.Equal(t, uint64(2), queue.Metrics.Dropped.Load())
}

func TestDropOldestBoundsMemory(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{"tiny", 1},
		{"small", 10},
		{"above floor", 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue, err := New[[64]byte](nil, tt.capacity, PolicyDropOldest)
			require.NoError(t, err)

			// No consumer: every push past capacity evicts the head
			pushes := 200 * (tt.capacity + compactFloor)
			for i := 0; i < pushes; i++ {
				require.True(t, queue.Push(context.Background(), [64]byte{byte(i)}))
			}

			bound := 2*(tt.capacity+compactFloor) + 1
			queue.mutex.Lock()
			slots, reserved := len(queue.items), cap(queue.items)
			queue.mutex.Unlock()

			assert.Equal(t, tt.capacity, queue.Len())
			assert.LessOrEqual(t, slots, bound)
			assert.LessOrEqual(t, reserved, 4*bound)
			assert.Equal(t, int64(tt.capacity), queue.Metrics.Depth.Load())
			assert.Equal(t, uint64(pushes-tt.capacity), queue.Metrics.Dropped.Load())

			// Survivors are the newest items in order
			items := queue.Drain()
			require.Len(t, items, tt.capacity)
			for i, item := range items {
				assert.Equal(t, byte(pushes-tt.capacity+i), item[0])
			}
		})
	}
}

func TestBlockPolicy(t *testing.T) {
	queue, err := New[int](nil, 1, PolicyBlock)
	require.NoError(t, err)
	require.True(t, queue.Push(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.False(t, queue.Push(ctx, 2), "push into full queue should give up on cancellation")

	done := make(chan bool)
	go func() {
		done <- queue.Push(context.Background(), 3)
	}()

	time.Sleep(20 * time.Millisecond)
	v, ok := queue.TryPop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case pushed := <-done:
		assert.True(t, pushed)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked producer was not released")
	}
	assert.Equal(t, []int{3}, queue.Drain())
}

func TestClose(t *testing.T) {
	queue, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)
	queue.Push(context.Background(), 1)

	waiting := make(chan bool)
	empty, err := New[int](nil, 0, PolicyUnbounded)
	require.NoError(t, err)
	go func() {
		_, ok := empty.Pop(context.Background(), time.Minute)
		waiting <- ok
	}()

	queue.Close()
	empty.Close()
	queue.Close()

	assert.False(t, queue.Push(context.Background(), 2))
	v, ok := queue.TryPop()
	require.True(t, ok, "items queued before close remain poppable")
	assert.Equal(t, 1, v)

	select {
	case ok := <-waiting:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("close did not wake waiting consumer")
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	queue, err := New[int](nil, 16, PolicyBlock)
	require.NoError(t, err)

	const producers, perProducer = 4, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				queue.Push(context.Background(), i)
			}
		}()
	}

	received := 0
	for received < producers*perProducer {
		if _, ok := queue.Pop(context.Background(), time.Second); ok {
			received++
			continue
		}
		t.Fatalf("stalled after %d items", received)
	}
	wg.Wait()
	assert.Equal(t, 0, queue.Len())
}

func TestDeriveCapacity(t *testing.T) {
	assert.Equal(t, minDerivedCapacity, deriveCapacity(0))
	assert.Equal(t, minDerivedCapacity, deriveCapacity(1<<20))
	assert.Equal(t, 32768, deriveCapacity(1<<30))
	assert.LessOrEqual(t, DefaultCapacity(), 1<<20)
}
