// Package ratelimit bounds request rate on the AI route with one token
// bucket per caller identity.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out a token bucket per key. Buckets are created lazily and
// live for the process lifetime; the key space is tiny (one shared API key,
// or one entry per client address in development mode).
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// PerMinute builds a limiter with a fixed requests-per-minute budget per
// key. The full budget is available as burst, refilled continuously.
func PerMinute(n int) *Limiter {
	if n <= 0 {
		n = 60
	}
	return &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(float64(n) / 60.0),
		burst:   n,
	}
}

// Allow reports whether the caller identified by key may proceed now.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(l.limit, l.burst)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

// Budget returns the per-minute request budget.
func (l *Limiter) Budget() int {
	return l.burst
}
