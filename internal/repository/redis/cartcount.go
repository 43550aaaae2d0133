package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const countKeyPrefix = "cart:count:"

// CartCountCache caches the cart badge counter in Redis. It backs the count
// endpoint only; checkout and stock decisions always read Postgres.
type CartCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCartCountCache creates a Redis-backed badge counter cache.
func NewCartCountCache(client *redis.Client, ttl time.Duration) *CartCountCache {
	return &CartCountCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached count for the user. The second return value reports
// whether the key was present.
func (c *CartCountCache) Get(ctx context.Context, userID string) (int, bool, error) {
	val, err := c.client.Get(ctx, countKeyPrefix+userID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis get cart count: %w", err)
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false, fmt.Errorf("parse cached cart count: %w", err)
	}
	return count, true, nil
}

// Set stores the count with the configured TTL.
func (c *CartCountCache) Set(ctx context.Context, userID string, count int) error {
	if err := c.client.Set(ctx, countKeyPrefix+userID, count, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart count: %w", err)
	}
	return nil
}

// Invalidate drops the cached count. Every cart mutation and checkout calls
// this so the badge never drifts more than one TTL behind.
func (c *CartCountCache) Invalidate(ctx context.Context, userID string) error {
	if err := c.client.Del(ctx, countKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("redis del cart count: %w", err)
	}
	return nil
}
