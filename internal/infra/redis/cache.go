package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 60 * time.Second

// MetricsCache is a short-TTL JSON cache for analytics responses.
type MetricsCache struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewMetricsCache(client *goredis.Client, ttl time.Duration) (*MetricsCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return &MetricsCache{client: client, ttl: ttl}, nil
}

// Get unmarshals the cached value into dest. The second return reports a hit.
func (c *MetricsCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if c == nil || c.client == nil {
		return false, fmt.Errorf("metrics cache is not initialized")
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached value: %w", err)
	}
	return true, nil
}

func (c *MetricsCache) Set(ctx context.Context, key string, value any) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("metrics cache is not initialized")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
