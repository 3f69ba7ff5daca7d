package manager

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNonceGenerator_SameSecond(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1700000000123)}
	g := NewNonceGenerator(WithClock(clock.Now))

	assert.Equal(t, int64(1700000000000000), g.Next())
	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, int64(1700000000000001), g.Next())
	assert.Equal(t, int64(1700000000000002), g.Next())

	seconds, counter := g.Last()
	assert.Equal(t, int64(1700000000), seconds)
	assert.Equal(t, int64(2), counter)
}

func TestNonceGenerator_NewSecondResetsCounter(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	g := NewNonceGenerator(WithClock(clock.Now))

	g.Next()
	g.Next()
	clock.Advance(time.Second)
	assert.Equal(t, int64(1700000001000000), g.Next())
}

func TestNonceGenerator_StrictlyIncreasing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	g := NewNonceGenerator(WithClock(clock.Now))

	prev := g.Next()
	for i := 0; i < 5000; i++ {
		if i%700 == 0 {
			clock.Advance(300 * time.Millisecond)
		}
		next := g.Next()
		require.Greater(t, next, prev)
		if next/NonceStride == prev/NonceStride {
			assert.Equal(t, prev+1, next)
		}
		prev = next
	}
}

func TestNonceGenerator_ZeroStateBeforeFirstCall(t *testing.T) {
	g := NewNonceGenerator()
	seconds, counter := g.Last()
	assert.Zero(t, seconds)
	assert.Zero(t, counter)

	n := g.Next()
	assert.InDelta(t, time.Now().Unix(), n/NonceStride, 2)
}

func TestNonceGenerator_IndependentInstances(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	a := NewNonceGenerator(WithClock(clock.Now))
	b := NewNonceGenerator(WithClock(clock.Now))

	a.Next()
	a.Next()
	assert.Equal(t, int64(1700000000000000), b.Next())
}

func TestNonceGenerator_ConcurrentUnique(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	g := NewNonceGenerator(WithClock(clock.Now))

	const workers, perWorker = 8, 250
	results := make(chan int64, workers*perWorker)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				results <- g.Next()
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int64]struct{}, workers*perWorker)
	for n := range results {
		_, dup := seen[n]
		require.False(t, dup, "duplicate nonce %d", n)
		seen[n] = struct{}{}
	}
	assert.Len(t, seen, workers*perWorker)
}
