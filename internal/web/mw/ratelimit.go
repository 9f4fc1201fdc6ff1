package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// limiterIdle is how long an unused per-client limiter is kept.
const limiterIdle = 10 * time.Minute

// IPRateLimiter hands out one token bucket per client IP. Buckets of
// clients that went quiet expire from the store.
type IPRateLimiter struct {
	mu    sync.Mutex
	store *cache.Cache
	r     rate.Limit
	b     int
}

// NewIPRateLimiter creates a limiter allowing r requests per second with
// bursts of b.
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		store: cache.New(limiterIdle, 2*limiterIdle),
		r:     r,
		b:     b,
	}
}

// Limiter returns the bucket for ip, creating it on first use.
func (i *IPRateLimiter) Limiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	if l, ok := i.store.Get(ip); ok {
		i.store.SetDefault(ip, l) // refresh expiry
		return l.(*rate.Limiter)
	}
	l := rate.NewLimiter(i.r, i.b)
	i.store.SetDefault(ip, l)
	return l
}

// RateLimiter is a middleware for IP-based rate limiting.
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	limiter := NewIPRateLimiter(r, b)
	return func(c *gin.Context) {
		if !limiter.Limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
