package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = 5 * time.Minute
	// cacheKeyspace prefixes every key written by CachedFinder.
	cacheKeyspace = "catalog:"
)

// Cache stores catalog records in Redis as JSON.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a cache with the given entry TTL. A nil client yields a
// cache that never hits and never writes.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) disabled() bool { return c == nil || c.client == nil }

// GetJSON decodes the entry at key into dst and reports whether it existed.
// An entry that no longer decodes is dropped and treated as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c.disabled() || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v at key for the cache TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c.disabled() || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Purge removes every catalog entry and returns how many were deleted. It
// runs after the catalog tables change so readers do not see stale prices.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	if c.disabled() {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, cacheKeyspace+"*", 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}
