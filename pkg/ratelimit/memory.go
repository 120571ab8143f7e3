package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryLimiter keeps last-allowed timestamps in a process-local cache. State is
// lost on restart and keys are never evicted.
type MemoryLimiter struct {
	cooldown time.Duration
	now      Clock

	mu    sync.Mutex
	cache *gocache.Cache
}

// MemoryOption customises a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock replaces time.Now (tests drive a fake clock through it).
func WithClock(clock Clock) MemoryOption {
	return func(l *MemoryLimiter) {
		if clock != nil {
			l.now = clock
		}
	}
}

// NewMemoryLimiter builds a limiter with the given cooldown. A zero cooldown allows everything.
func NewMemoryLimiter(cooldown time.Duration, opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		cooldown: cooldown,
		now:      time.Now,
		cache:    gocache.New(gocache.NoExpiration, 0),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *MemoryLimiter) Check(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if raw, found := l.cache.Get(key); found {
		if last, ok := raw.(time.Time); ok {
			elapsed := now.Sub(last)
			if elapsed < l.cooldown {
				return Result{Allowed: false, Remaining: l.cooldown - elapsed}, nil
			}
		}
	}
	l.cache.Set(key, now, gocache.NoExpiration)
	return Result{Allowed: true}, nil
}

func (l *MemoryLimiter) Clear(_ context.Context, key string) error {
	l.cache.Delete(key)
	return nil
}

func (l *MemoryLimiter) ClearAll(_ context.Context) error {
	l.cache.Flush()
	return nil
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	return l.cache.ItemCount()
}
