// Package ratelimit guards expensive operations (LLM calls) with per-key
// token buckets and an optional rolling daily quota.
package ratelimit

import (
	"sync"
	"time"
)

// Clock returns the current time. Tests swap it for a fake.
type Clock func() time.Time

// Bucket implements a token bucket. It is safe for concurrent use.
//
// Tokens are added at refillRate per second up to maxTokens; each request
// takes one token.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
	now        Clock
}

// NewBucket creates a full bucket.
//
//	// 10 calls at once, then one every 6 minutes
//	b := ratelimit.NewBucket(10, 10.0/3600, time.Now)
func NewBucket(maxTokens, refillRate float64, now Clock) *Bucket {
	if now == nil {
		now = time.Now
	}
	return &Bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// refill must be called with mu held.
func (b *Bucket) refill() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = min(b.maxTokens, b.tokens+elapsed*b.refillRate)
	}
	b.lastRefill = now
}

// Allow takes a token if one is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Check reports whether a token is available without taking it.
// Pair with Consume under an external lock for multi-layer checks.
func (b *Bucket) Check() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens >= 1
}

// Consume takes a token if one is available.
func (b *Bucket) Consume() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
	}
}

// Available returns the current number of tokens.
func (b *Bucket) Available() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens
}

// RetryAfter is how long until the next token.
func (b *Bucket) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 || b.refillRate <= 0 {
		return 0
	}
	return time.Duration((1 - b.tokens) / b.refillRate * float64(time.Second))
}

// IsFull reports whether the bucket is back at capacity, i.e. idle.
func (b *Bucket) IsFull() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return b.tokens >= b.maxTokens
}
