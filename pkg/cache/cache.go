// pkg/cache/cache.go
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a thin namespaced wrapper over redis, used for rate limit counters.
type Cache struct {
	client redis.UniversalClient
}

func NewCache(addr, password string, db int) *Cache {
	return &Cache{client: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// GetTTL reports how long a key has left; negative when it has no expiry or does not exist.
func (c *Cache) GetTTL(ctx context.Context, namespace, key string) (time.Duration, error) {
	return c.client.TTL(ctx, namespace+":"+key).Result()
}

// IncrWithExpire increments a counter and starts its window on the first hit.
func (c *Cache) IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error) {
	countKey := namespace + ":" + key

	cnt, err := c.client.Incr(ctx, countKey).Result()
	if err != nil {
		return 0, err
	}
	if cnt == 1 {
		_ = c.client.Expire(ctx, countKey, window).Err()
	}
	return cnt, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}
