// Package ratelimit throttles inbound senders with fixed-window counters.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/sms-router/internal/cache"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// Decision is the result of one Allow call.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
}

// Limiter counts events per key inside a window.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	// Reset forgets the counter for one key.
	Reset(ctx context.Context, key string) error
	// Clear forgets every counter.
	Clear(ctx context.Context) error
}

const keyPrefix = "ratelimit:"

var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)

// Config bounds each key to Limit events per Window. Limit <= 0 disables limiting.
type Config struct {
	Limit  int
	Window time.Duration
}

func (c Config) disabled() bool {
	return c.Limit <= 0 || c.Window <= 0
}

// MemoryLimiter keeps counters in the process-wide cache.
type MemoryLimiter struct {
	counters *cache.Manager[int]
	cfg      Config
}

// NewMemoryLimiter counts in counters, which may be shared with other users
// of the cache; keys are namespaced with "ratelimit:".
func NewMemoryLimiter(counters *cache.Manager[int], cfg Config) *MemoryLimiter {
	if counters == nil {
		counters = cache.New[int]()
	}
	return &MemoryLimiter{counters: counters, cfg: cfg}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if l.cfg.disabled() {
		return Decision{Allowed: true}, nil
	}
	count, ok := l.counters.Update(counterKey(key), l.cfg.Window, func(old int, live bool) int {
		if !live {
			return 1
		}
		return old + 1
	})
	if !ok {
		return Decision{Allowed: true, Limit: l.cfg.Limit}, fmt.Errorf("ratelimit: invalid key %q", key)
	}
	return Decision{Allowed: count <= l.cfg.Limit, Count: count, Limit: l.cfg.Limit}, nil
}

// Reset implements Limiter.
func (l *MemoryLimiter) Reset(_ context.Context, key string) error {
	l.counters.Delete(counterKey(key))
	return nil
}

// Clear implements Limiter. Entries outside the "ratelimit:" namespace are kept.
func (l *MemoryLimiter) Clear(context.Context) error {
	l.counters.DeletePrefix(keyPrefix)
	return nil
}

// RedisLimiter shares counters across instances through Redis. Redis errors
// fail open.
type RedisLimiter struct {
	redis  *redis.Client
	cfg    Config
	logger *logging.Logger
}

// NewRedisLimiter creates a Redis-backed limiter.
func NewRedisLimiter(client *redis.Client, cfg Config, logger *logging.Logger) *RedisLimiter {
	if client == nil {
		panic("ratelimit: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisLimiter{redis: client, cfg: cfg, logger: logger}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.cfg.disabled() {
		return Decision{Allowed: true}, nil
	}
	k := counterKey(key)
	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Error("rate limit check failed", "error", err, "key", k)
		return Decision{Allowed: true, Limit: l.cfg.Limit}, nil
	}
	// Set expiry only on first increment so the window is fixed.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			l.logger.Warn("rate limit expiry failed", "error", err, "key", k)
		}
	}
	return Decision{Allowed: int(count) <= l.cfg.Limit, Count: int(count), Limit: l.cfg.Limit}, nil
}

// Reset implements Limiter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	k := counterKey(key)
	if k == "" {
		return nil
	}
	return l.redis.Del(ctx, k).Err()
}

// Clear implements Limiter by scanning the "ratelimit:" namespace.
func (l *RedisLimiter) Clear(ctx context.Context) error {
	iter := l.redis.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	batch := make([]string, 0, 100)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := l.redis.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("ratelimit: clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("ratelimit: clear: %w", err)
	}
	if len(batch) > 0 {
		if err := l.redis.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("ratelimit: clear: %w", err)
		}
	}
	return nil
}

func counterKey(key string) string {
	if key == "" {
		return ""
	}
	return keyPrefix + key
}
