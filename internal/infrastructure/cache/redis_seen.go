// Package cache holds the Redis-backed fast path for duplicate detection.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsIngest/internal/metrics"
	"NewsIngest/internal/ports"
)

const keyPrefix = "newsingest:seen:"

// RedisSeen remembers stored article URLs for a bounded time.
type RedisSeen struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ports.SeenCache = (*RedisSeen)(nil)

func NewRedisSeen(addr, password string, db int, ttl time.Duration) *RedisSeen {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisSeen{client: client, ttl: ttl}
}

func (c *RedisSeen) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is available and updates the cache gauge.
func (c *RedisSeen) Ping(ctx context.Context) error {
	err := c.client.Ping(ctx).Err()
	metrics.SetCacheUp(err == nil)
	return err
}

func (c *RedisSeen) Seen(ctx context.Context, url string) (bool, error) {
	n, err := c.client.Exists(ctx, keyPrefix+url).Result()
	if err != nil {
		metrics.SetCacheUp(false)
		return false, err
	}
	metrics.SetCacheUp(true)
	return n > 0, nil
}

// MarkSeen stores all urls in one round trip, refreshing their TTL.
func (c *RedisSeen) MarkSeen(ctx context.Context, urls ...string) error {
	if len(urls) == 0 {
		return nil
	}

	pipe := c.client.Pipeline()
	for _, url := range urls {
		if url == "" {
			continue
		}
		pipe.Set(ctx, keyPrefix+url, 1, c.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		metrics.SetCacheUp(false)
		return err
	}
	metrics.SetCacheUp(true)
	return nil
}
