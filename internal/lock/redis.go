package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// RedisLocker holds keys as redislock leases so concurrent replicas cannot
// resolve the same report at once.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	wait   time.Duration
	prefix string
}

func NewRedisLocker(rdb redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		wait:   wait,
		prefix: "lock:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	var strategy redislock.RetryStrategy = redislock.NoRetry()
	if l.wait > 0 {
		backoff := 50 * time.Millisecond
		strategy = redislock.LimitRetry(redislock.LinearBackoff(backoff), int(l.wait/backoff))
	}

	lk, err := l.client.Obtain(ctx, l.prefix+key, l.ttl, &redislock.Options{RetryStrategy: strategy})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("obtain redis lock %s: %w", key, err)
	}

	return func() {
		// Own deadline: the caller's context may already be done here.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lk.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			slog.Warn("redis lock release failed", "key", key, "error", err)
		}
	}, nil
}

// Connect parses a redis:// URL and verifies the server answers.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}
