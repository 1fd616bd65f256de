package debounce

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "debounce:"

// RedisGate shares the debounce window across processes with SET NX PX.
type RedisGate struct {
	rdb      redis.UniversalClient
	interval time.Duration
}

// NewRedisGate returns a Redis-backed gate.
func NewRedisGate(rdb redis.UniversalClient, interval time.Duration) *RedisGate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &RedisGate{rdb: rdb, interval: interval}
}

func (g *RedisGate) Allow(ctx context.Context, userID, field string) (bool, time.Duration, error) {
	if g == nil || g.rdb == nil {
		return true, 0, nil
	}
	k := redisKeyPrefix + key(userID, field)
	ok, err := g.rdb.SetNX(ctx, k, time.Now().UnixMilli(), g.interval).Result()
	if err != nil {
		return false, 0, fmt.Errorf("debounce setnx: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	ttl, err := g.rdb.PTTL(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("debounce pttl: %w", err)
	}
	if ttl <= 0 {
		ttl = g.interval
	}
	return false, ttl, nil
}

func (g *RedisGate) Release(ctx context.Context, userID, field string) error {
	if g == nil || g.rdb == nil {
		return nil
	}
	if err := g.rdb.Del(ctx, redisKeyPrefix+key(userID, field)).Err(); err != nil {
		return fmt.Errorf("debounce del: %w", err)
	}
	return nil
}
