package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/classroom-planner/internal/metrics"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels drops in metrics (e.g. "llm").
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	// DailyLimit caps requests over a rolling 24h window. 0 disables it.
	DailyLimit int

	// CleanupPeriod is how often idle keys are dropped. 0 disables the loop.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
	Clock   Clock
}

// KeyedLimiter keeps one bucket (plus daily counter) per key, e.g. per teacher.
type KeyedLimiter struct {
	mu      sync.RWMutex
	entries map[string]*keyedEntry
	cfg     KeyedConfig
	stopCh  chan struct{}
	stop    sync.Once
}

// keyedEntry serializes the two-layer check-then-consume of one key.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Bucket
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter starts the cleanup loop when CleanupPeriod > 0; call Stop
// to end it.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	kl := &KeyedLimiter{
		entries: make(map[string]*keyedEntry),
		cfg:     cfg,
		stopCh:  make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// NewPerHour builds a limiter allowing perHour calls per key with a burst of
// burst, plus an optional daily cap.
func NewPerHour(name string, burst, perHour float64, daily int, m *metrics.Metrics, cleanup time.Duration) *KeyedLimiter {
	return NewKeyedLimiter(KeyedConfig{
		Name:          name,
		Burst:         burst,
		RefillRate:    perHour / 3600,
		DailyLimit:    daily,
		CleanupPeriod: cleanup,
		Metrics:       m,
	})
}

// Allow takes a token for key when both the bucket and the daily quota allow it.
func (kl *KeyedLimiter) Allow(key string) bool {
	entry := kl.entry(key)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.daily.Check() || !entry.bucket.Check() {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
		return false
	}
	entry.daily.Consume()
	entry.bucket.Consume()
	return true
}

// RetryAfter returns how long key must wait for its next token.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return 0
	}
	return entry.bucket.RetryAfter()
}

// Available returns the tokens left for key.
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.Burst
	}
	return entry.bucket.Available()
}

// DailyRemaining returns the daily quota left for key, or -1 when disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.DailyLimit
	}
	return entry.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	entry, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return entry
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()

	if entry, ok = kl.entries[key]; ok {
		return entry
	}
	entry = &keyedEntry{
		bucket: NewBucket(kl.cfg.Burst, kl.cfg.RefillRate, kl.cfg.Clock),
		daily:  NewSlidingWindowCounter(kl.cfg.DailyLimit, 24*time.Hour, kl.cfg.Clock),
	}
	kl.entries[key] = entry
	return entry
}

// Cleanup drops keys whose bucket is full and whose daily window is unused.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, entry := range kl.entries {
		if entry.bucket.IsFull() && (entry.daily == nil || entry.daily.Remaining() == kl.cfg.DailyLimit) {
			delete(kl.entries, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}

// Stop ends the cleanup loop. Safe to call multiple times.
func (kl *KeyedLimiter) Stop() {
	kl.stop.Do(func() { close(kl.stopCh) })
}
