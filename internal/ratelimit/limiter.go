package ratelimit

// RateLimiter controls send throughput per bucket key.
type RateLimiter interface {
	// Allow consumes one token from the key's bucket. It never blocks; a
	// false return is a final rejection for this invocation.
	Allow(key string) bool
}
