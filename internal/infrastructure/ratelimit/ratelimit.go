// Package ratelimit provides the per-key token bucket used to throttle logins.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// TokenBucket is an in-memory per-key limiter. Each key starts with capacity
// tokens and regains one token every refill interval. Safe for concurrent use.
type TokenBucket struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	interval time.Duration
	idleTTL  time.Duration
	now      func() time.Time
}

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastSeen   time.Time
}

// NewTokenBucket returns a limiter allowing capacity requests per key, refilled
// at one token per interval.
func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	idle := time.Duration(capacity) * interval
	if idle < 10*time.Minute {
		idle = 10 * time.Minute
	}
	return &TokenBucket{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		interval: interval,
		idleTTL:  idle,
		now:      time.Now,
	}
}

// Allow consumes one token for key when available.
func (tb *TokenBucket) Allow(_ context.Context, key string) (Decision, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.now()
	b, ok := tb.buckets[key]
	if !ok {
		b = &bucket{tokens: tb.capacity, lastRefill: now}
		tb.buckets[key] = b
	}
	b.lastSeen = now

	if tb.interval > 0 {
		if intervals := int(now.Sub(b.lastRefill) / tb.interval); intervals > 0 {
			b.tokens = min(tb.capacity, b.tokens+intervals)
			b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * tb.interval)
		}
	}

	d := Decision{Limit: tb.capacity}
	if b.tokens > 0 {
		b.tokens--
		d.Allowed = true
		d.Remaining = b.tokens
		return d, nil
	}
	if tb.interval > 0 {
		d.RetryAfter = tb.interval - now.Sub(b.lastRefill)
	}
	return d, nil
}

// Run evicts idle buckets until ctx is cancelled.
func (tb *TokenBucket) Run(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tb.evictIdle()
		}
	}
}

func (tb *TokenBucket) evictIdle() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	cutoff := tb.now().Add(-tb.idleTTL)
	for key, b := range tb.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(tb.buckets, key)
		}
	}
}
