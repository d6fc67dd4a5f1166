package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ipWindow counts requests from one client inside the current window
type ipWindow struct {
	count   int
	resetAt time.Time
}

// RateLimiter caps requests per client IP with a fixed window. The fix-ingest
// route is the only high-traffic endpoint, so a coarse window is enough.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*ipWindow
	limit   int
	window  time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit requests per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*ipWindow),
		limit:   limit,
		window:  window,
	}
}

// Allow reports whether a request from ip fits in the current window
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	w, ok := rl.windows[ip]
	if !ok || now.After(w.resetAt) {
		// Expired windows from other clients pile up slowly; sweep them
		// while the map is already locked
		if len(rl.windows) > 1024 {
			for k, v := range rl.windows {
				if now.After(v.resetAt) {
					delete(rl.windows, k)
				}
			}
		}
		rl.windows[ip] = &ipWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}

	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

// RateLimit middleware limits requests per client IP
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
