package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed windows:
//
//	effective = current + previous × (unelapsed share of the current window)
//
// A nil counter allows everything.
type SlidingWindowCounter struct {
	mu          sync.Mutex
	currCount   int
	prevCount   int
	windowStart time.Time
	window      time.Duration
	limit       int
	now         Clock
}

// NewSlidingWindowCounter returns nil when limit <= 0 (disabled).
func NewSlidingWindowCounter(limit int, window time.Duration, now Clock) *SlidingWindowCounter {
	if limit <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &SlidingWindowCounter{
		windowStart: now(),
		window:      window,
		limit:       limit,
		now:         now,
	}
}

// Check reports whether one more request fits.
func (c *SlidingWindowCounter) Check() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.effective() < float64(c.limit)
}

// Consume records one request.
func (c *SlidingWindowCounter) Consume() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.effective() < float64(c.limit) {
		c.currCount++
	}
}

// Remaining returns the approximate quota left, or -1 when disabled.
func (c *SlidingWindowCounter) Remaining() int {
	if c == nil {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return max(0, int(float64(c.limit)-c.effective()))
}

// effective rotates windows as needed and returns the weighted count.
// Must be called with mu held.
func (c *SlidingWindowCounter) effective() float64 {
	elapsed := c.now().Sub(c.windowStart)
	if elapsed >= c.window {
		passed := int(elapsed / c.window)
		if passed == 1 {
			c.prevCount = c.currCount
		} else {
			c.prevCount = 0
		}
		c.currCount = 0
		c.windowStart = c.windowStart.Add(time.Duration(passed) * c.window)
		elapsed = c.now().Sub(c.windowStart)
	}

	overlap := float64(c.window-elapsed) / float64(c.window)
	overlap = max(0, min(1, overlap))
	return float64(c.currCount) + float64(c.prevCount)*overlap
}
