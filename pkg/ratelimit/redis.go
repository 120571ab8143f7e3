package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/hackbot/pkg/redis"
)

// RedisLimiter shares cooldowns between bot instances. The key's TTL carries the
// remaining wait, so a blocked check only reads it.
type RedisLimiter struct {
	store    redis.CooldownStore
	cooldown time.Duration
}

func NewRedisLimiter(store redis.CooldownStore, cooldown time.Duration) (*RedisLimiter, error) {
	if store == nil {
		return nil, errors.New("cooldown store required")
	}
	return &RedisLimiter{store: store, cooldown: cooldown}, nil
}

func (l *RedisLimiter) Check(ctx context.Context, key string) (Result, error) {
	if l.cooldown <= 0 {
		return Result{Allowed: true}, nil
	}
	acquired, remaining, err := l.store.AcquireCooldown(ctx, key, l.cooldown)
	if err != nil {
		return Result{}, err
	}
	if acquired {
		return Result{Allowed: true}, nil
	}
	if remaining > l.cooldown {
		remaining = l.cooldown
	}
	return Result{Allowed: false, Remaining: remaining}, nil
}

func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	return l.store.ClearCooldown(ctx, key)
}

func (l *RedisLimiter) ClearAll(ctx context.Context) error {
	return l.store.ClearCooldowns(ctx)
}
