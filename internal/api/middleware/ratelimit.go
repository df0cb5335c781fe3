package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/topmuch/qrsell-sub001/internal/api/response"
	"github.com/topmuch/qrsell-sub001/internal/clock"
)

const (
	RateLimitKeyIP     = "ip"
	RateLimitKeySeller = "seller"
)

// slidingWindowLimiter keeps request timestamps per key. Keys with no hit
// inside the window are swept at most once per window, so memory tracks the
// set of recently active callers only.
type slidingWindowLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clock     clock.Clock
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newSlidingWindowLimiter(limit int, window time.Duration, clk clock.Clock) *slidingWindowLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &slidingWindowLimiter{
		limit:  limit,
		window: window,
		clock:  clock.OrSystem(clk),
		hits:   make(map[string][]time.Time),
	}
}

func (l *slidingWindowLimiter) allow(key string) bool {
	now := l.clock.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.window {
		l.sweep(cutoff)
		l.lastSweep = now
	}

	recent := dropBefore(l.hits[key], cutoff)
	if len(recent) >= l.limit {
		l.hits[key] = recent
		return false
	}
	l.hits[key] = append(recent, now)
	return true
}

func (l *slidingWindowLimiter) sweep(cutoff time.Time) {
	for key, stamps := range l.hits {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}

func (l *slidingWindowLimiter) trackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// dropBefore trims stamps (oldest first) to those after cutoff, reusing the
// backing array.
func dropBefore(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

// RateLimit applies a per-key sliding window. Each call owns its limiter, so
// two routes with the same key template do not share a budget.
func RateLimit(key string, limit int, window time.Duration) gin.HandlerFunc {
	return rateLimitWith(newSlidingWindowLimiter(limit, window, nil), key)
}

func rateLimitWith(limiter *slidingWindowLimiter, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.allow(resolveRateLimitKey(c, key)) {
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

func resolveRateLimitKey(c *gin.Context, keyTemplate string) string {
	switch keyTemplate {
	case RateLimitKeySeller:
		if sellerID := SellerID(c); sellerID != "" {
			return "seller:" + sellerID
		}
		return "seller:anonymous:" + c.ClientIP()
	case "", RateLimitKeyIP:
		return "ip:" + c.ClientIP()
	default:
		replaced := strings.ReplaceAll(keyTemplate, "{ip}", c.ClientIP())
		return strings.ReplaceAll(replaced, "{seller_id}", SellerID(c))
	}
}
