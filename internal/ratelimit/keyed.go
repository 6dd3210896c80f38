package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Recorder counts rejected requests.
type Recorder interface {
	RecordRateLimited(name string)
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels the limiter in metrics.
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	Recorder Recorder
}

// KeyedLimiter keeps one bucket per key (a client address). Buckets that
// refill completely are dropped by Cleanup.
type KeyedLimiter struct {
	cfg KeyedConfig
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*Limiter
}

// NewKeyed creates a per-key limiter.
func NewKeyed(cfg KeyedConfig) *KeyedLimiter {
	return &KeyedLimiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*Limiter),
	}
}

// Allow consumes a token from key's bucket. An empty key is never limited.
// On rejection it returns how long the caller should wait.
func (kl *KeyedLimiter) Allow(key string) (bool, time.Duration) {
	if key == "" {
		return true, 0
	}

	b := kl.bucket(key)
	if b.Allow() {
		return true, 0
	}
	if kl.cfg.Recorder != nil {
		kl.cfg.Recorder.RecordRateLimited(kl.cfg.Name)
	}
	return false, b.RetryAfter()
}

func (kl *KeyedLimiter) bucket(key string) *Limiter {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	b, ok := kl.buckets[key]
	if !ok {
		b = newWithClock(kl.cfg.Burst, kl.cfg.RefillRate, kl.now)
		kl.buckets[key] = b
	}
	return b
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.buckets)
}

// Cleanup drops idle buckets and returns how many were removed.
func (kl *KeyedLimiter) Cleanup() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	removed := 0
	for key, b := range kl.buckets {
		if b.IsFull() {
			delete(kl.buckets, key)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup every period until ctx is done.
func (kl *KeyedLimiter) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			kl.Cleanup()
		}
	}
}
