package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/campusvote/campusvote/internal/domain"
)

// Counter provides increment, read and overwrite operations on prefixed
// keys. The live tally reads these instead of hitting Postgres.
type Counter struct {
	client *redis.Client
	prefix string
}

func NewCounter(client *redis.Client, prefix string) *Counter {
	return &Counter{
		client: client,
		prefix: prefix,
	}
}

func (c *Counter) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return c.client.IncrBy(ctx, c.key(key), delta).Result()
}

func (c *Counter) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, c.key(key)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}

func (c *Counter) GetAll(ctx context.Context, keys []string) (map[string]int64, error) {
	if len(keys) == 0 {
		return map[string]int64{}, nil
	}

	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}

	// MGET cuts round-trips when the full tally snapshot is needed.
	values, err := c.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[string]int64, len(keys))
	for i, raw := range values {
		if raw == nil {
			result[keys[i]] = 0
			continue
		}

		switch v := raw.(type) {
		case string:
			num, convErr := strconv.ParseInt(v, 10, 64)
			if convErr != nil {
				return nil, fmt.Errorf("redis counter: invalid value for %s: %w", keys[i], convErr)
			}
			result[keys[i]] = num
		case int64:
			result[keys[i]] = v
		default:
			return nil, fmt.Errorf("redis counter: unexpected type %T", raw)
		}
	}

	return result, nil
}

// Set overwrites a counter. The reconciler uses it to snap drifted values
// back to the ledger totals.
func (c *Counter) Set(ctx context.Context, key string, value int64) error {
	return c.client.Set(ctx, c.key(key), value, 0).Err()
}

func (c *Counter) key(key string) string {
	if c.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s:%s", c.prefix, key)
}

var _ domain.Counter = (*Counter)(nil)
