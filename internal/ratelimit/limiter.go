// Package ratelimit provides a per-key token-bucket limiter shared by
// the two rate-limited surfaces: token issuance (per source IP) and
// payment creation (per client).
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Limiter holds one token-bucket per key, created lazily on first use.
type Limiter struct {
	mu           sync.RWMutex
	buckets      map[string]*rate.Limiter
	perMinute    int
	burst        int
}

// New builds a limiter allowing perMinute requests per key, with burst
// equal to perMinute (a key can spend its whole minute's budget at once).
func New(perMinute int) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*rate.Limiter),
		perMinute: perMinute,
		burst:     perMinute,
	}
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = rate.NewLimiter(rate.Limit(l.perMinute)/60.0, l.burst)
	l.buckets[key] = b
	return b
}

// Allow reports whether the next request for key is within budget.
func (l *Limiter) Allow(key string) bool {
	return l.bucket(key).Allow()
}
