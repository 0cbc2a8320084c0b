// Package throttle bounds repeated sensitive actions per caller, with a
// Redis fixed-window limiter and a noop mode.
package throttle

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusvote/campusvote/internal/domain"
)

var ErrRateLimited = fmt.Errorf("too many attempts")

// RedisLimiter counts attempts per key in fixed windows backed by Redis.
// The login path keys it by email plus source address.
type RedisLimiter struct {
	client    *redis.Client
	limit     int
	window    time.Duration
	keyPrefix string
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "throttle"
	}
	return &RedisLimiter{
		client:    client,
		limit:     limit,
		window:    window,
		keyPrefix: prefix,
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) error {
	if r.client == nil || r.limit <= 0 || r.window <= 0 {
		// Invalid configuration degrades to permissive mode.
		return nil
	}

	k := r.buildKey(key)
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("throttle: increment key: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return fmt.Errorf("throttle: set expiry: %w", err)
		}
	}

	if int(count) > r.limit {
		return ErrRateLimited
	}

	return nil
}

func (r *RedisLimiter) buildKey(key string) string {
	// SHA-1 keeps emails and addresses out of raw Redis keys.
	hash := sha1.Sum([]byte(key))
	return fmt.Sprintf("%s:%s", r.keyPrefix, hex.EncodeToString(hash[:]))
}

var _ domain.LoginThrottle = (*RedisLimiter)(nil)
