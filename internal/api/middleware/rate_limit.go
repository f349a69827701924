package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/api/metrics"
)

// RateLimiter is a fixed-window counter keyed by client identity. State is
// explicitly owned, process-local and guarded by a single mutex: each
// check-and-record is one critical section, so concurrent requests from the
// same key cannot both be admitted on a stale count.
type RateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]*windowEntry
}

type windowEntry struct {
	count       int
	windowStart time.Time
}

// NewRateLimiter creates a limiter admitting maxRequests per window per key.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		entries:     make(map[string]*windowEntry),
	}
}

// Allow records a request for key and reports whether it is admitted.
// Clients without an identifiable key are always admitted.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	e, ok := rl.entries[key]
	if !ok || now.Sub(e.windowStart) >= rl.window {
		rl.entries[key] = &windowEntry{count: 1, windowStart: now}
		return true
	}

	e.count++
	return e.count <= rl.maxRequests
}

// Middleware rejects over-budget requests with 429 before any handler work.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
