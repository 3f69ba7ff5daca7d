package manager

import (
	"sync"
	"time"
)

// NonceStride separates consecutive seconds in the nonce space; the counter
// occupies the low digits.
const NonceStride = 1_000_000

// NonceGenerator issues action nonces of the form seconds*NonceStride+counter.
// The counter disambiguates actions issued within the same wall-clock second.
// One generator is shared by everything that signs for a session; it is safe
// for concurrent use.
type NonceGenerator struct {
	now func() time.Time

	mu          sync.Mutex
	lastSeconds int64
	counter     int64
}

type NonceOption func(*NonceGenerator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) NonceOption {
	return func(g *NonceGenerator) {
		if now != nil {
			g.now = now
		}
	}
}

func NewNonceGenerator(opts ...NonceOption) *NonceGenerator {
	g := &NonceGenerator{now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns the next nonce. Values are strictly increasing as long as
// fewer than NonceStride nonces are requested per second.
func (g *NonceGenerator) Next() int64 {
	nowSeconds := g.now().UnixMilli() / 1000

	g.mu.Lock()
	defer g.mu.Unlock()

	if nowSeconds == g.lastSeconds {
		g.counter++
	} else {
		g.lastSeconds = nowSeconds
		g.counter = 0
	}
	return nowSeconds*NonceStride + g.counter
}

// Last returns the second and counter of the most recent nonce. Both are zero
// before the first call to Next.
func (g *NonceGenerator) Last() (seconds, counter int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSeconds, g.counter
}
