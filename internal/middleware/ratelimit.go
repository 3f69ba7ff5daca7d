package middleware

import (
	"sync"

	"github.com/asterdex/astergate/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ClientLimiters hands out one token bucket per client identity.
type ClientLimiters struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func NewClientLimiters(rps float64, burst int) *ClientLimiters {
	if burst <= 0 {
		burst = 1
	}
	return &ClientLimiters{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ClientLimiters) Get(client string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[client]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[client] = limiter
	}
	return limiter
}

// RateLimitMiddleware must run after AuthMiddleware. A non-positive rate
// disables limiting.
func RateLimitMiddleware(limiters *ClientLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiters == nil || limiters.rps <= 0 {
			c.Next()
			return
		}
		if !limiters.Get(ClientID(c)).Allow() {
			c.Header("Retry-After", "1")
			c.Error(apperrors.New(apperrors.ErrRateLimited, "rate limit exceeded", nil))
			c.Abort()
			return
		}
		c.Next()
	}
}
