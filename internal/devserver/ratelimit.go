package devserver

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sharanperla/Greenleaf-client/internal/proto"
)

// rateLimiter counts requests per key in fixed one-minute windows.
type rateLimiter struct {
	limit int
	now   func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	counters    map[string]int
}

func newRateLimiter(limit int) *rateLimiter {
	return &rateLimiter{
		limit:    limit,
		now:      time.Now,
		counters: make(map[string]int),
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.windowStart) >= time.Minute {
		r.windowStart = now
		clear(r.counters)
	}
	r.counters[key]++
	return r.counters[key] <= r.limit
}

// RateLimitMiddleware rejects clients that exceed limit requests per minute.
func RateLimitMiddleware(limit int) gin.HandlerFunc {
	limiter := newRateLimiter(limit)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, proto.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
