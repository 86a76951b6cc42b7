package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultRequestsPerMinute = 60
	idleEviction             = 10 * time.Minute
)

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SearchLimiter throttles search requests per client IP with a token bucket
// that refills requestsPerMinute tokens each minute.
type SearchLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry

	rate       rate.Limit
	burst      int
	retryAfter time.Duration
	now        func() time.Time
}

// NewSearchLimiter creates a limiter. A non-positive limit uses the default.
func NewSearchLimiter(requestsPerMinute int) *SearchLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	return &SearchLimiter{
		limiters:   make(map[string]*ipEntry),
		rate:       rate.Every(time.Minute / time.Duration(requestsPerMinute)),
		burst:      requestsPerMinute,
		retryAfter: time.Minute / time.Duration(requestsPerMinute),
		now:        time.Now,
	}
}

// Middleware rejects requests over the limit with 429.
func (l *SearchLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				secs := max(int(l.retryAfter.Round(time.Second)/time.Second), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many search requests, please slow down")
			}
			return next(c)
		}
	}
}

// Allow reports whether ip may make another request now.
func (l *SearchLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Cleanup evicts clients not seen recently.
func (l *SearchLimiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for ip, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > idleEviction {
			delete(l.limiters, ip)
		}
	}
}

// Tracked returns the number of clients with a live bucket.
func (l *SearchLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// StartCleanup runs Cleanup every interval until done is closed.
func (l *SearchLimiter) StartCleanup(interval time.Duration, done <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.Cleanup()
			case <-done:
				return
			}
		}
	}()
}
