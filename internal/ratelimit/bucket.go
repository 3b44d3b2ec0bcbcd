package ratelimit

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultCapacity     = 10
	defaultRefillPerSec = 1
)

type bucket struct {
	tokens       float64
	capacity     float64
	refillPerSec float64
	lastRefill   time.Time
}

var _ RateLimiter = (*BucketRegistry)(nil)

// BucketRegistry is an in-process token-bucket rate limiter. Buckets are
// lazily created per key, refill continuously from wall-clock time, and live
// for the process lifetime. The registry is owned by whoever constructs it,
// so tests can run isolated instances.
type BucketRegistry struct {
	mu           sync.Mutex
	buckets      map[string]*bucket
	capacity     float64
	refillPerSec float64
	now          func() time.Time
}

func NewBucketRegistry(capacity int, refillPerSec float64) *BucketRegistry {
	return newBucketRegistry(capacity, refillPerSec, time.Now)
}

func newBucketRegistry(capacity int, refillPerSec float64, nowFn func() time.Time) *BucketRegistry {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	if refillPerSec < 0 {
		refillPerSec = defaultRefillPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &BucketRegistry{
		buckets:      make(map[string]*bucket),
		capacity:     float64(capacity),
		refillPerSec: refillPerSec,
		now:          nowFn,
	}
}

// Allow refills the key's bucket from elapsed time, capped at capacity, then
// consumes one token if available.
func (r *BucketRegistry) Allow(key string) bool {
	if r == nil {
		return false
	}

	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{
			tokens:       r.capacity,
			capacity:     r.capacity,
			refillPerSec: r.refillPerSec,
			lastRefill:   now,
		}
		r.buckets[key] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.capacity, b.tokens+elapsed*b.refillPerSec)
		b.lastRefill = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Tokens reports the current token count for a key without consuming.
// Unknown keys report full capacity.
func (r *BucketRegistry) Tokens(key string) float64 {
	if r == nil {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.buckets[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return r.capacity
	}

	elapsed := r.now().Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return b.tokens
	}
	return min(b.capacity, b.tokens+elapsed*b.refillPerSec)
}
