package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyLimiter keeps one token bucket per key, e.g. per phone number or client IP.
type KeyLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyEntry
	rate     rate.Limit
	burst    int
	clock    func() time.Time
}

type keyEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyLimiter allows burst events at once and then one every interval.
func NewKeyLimiter(interval time.Duration, burst int, clock func() time.Time) *KeyLimiter {
	if burst <= 0 {
		burst = 1
	}
	if clock == nil {
		clock = time.Now
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &KeyLimiter{
		limiters: make(map[string]*keyEntry),
		rate:     limit,
		burst:    burst,
		clock:    clock,
	}
}

func (l *KeyLimiter) Allow(key string) bool {
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.limiters[key]
	if !ok {
		entry = &keyEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// Purge drops buckets that have refilled completely.
func (l *KeyLimiter) Purge(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	idle := l.idleAfter()
	removed := 0
	for key, entry := range l.limiters {
		if now.Sub(entry.lastSeen) >= idle {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}

func (l *KeyLimiter) idleAfter() time.Duration {
	if l.rate == rate.Inf || l.rate <= 0 {
		return 0
	}
	per := time.Duration(float64(time.Second) / float64(l.rate))
	return per * time.Duration(l.burst)
}
