package media

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// Cache stores resolutions by key. An empty value is a cached miss.
// Implementations must be safe for concurrent use; a failing backend
// behaves as a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool)
	Set(ctx context.Context, key string, value string)
	Delete(ctx context.Context, key string)
}

// LRUCache is a bounded in-process cache whose entries expire after a TTL.
type LRUCache struct {
	lru *expirable.LRU[string, string]
}

// NewLRUCache creates a cache holding at most size entries for ttl each.
// ttl <= 0 disables expiry.
func NewLRUCache(size int, ttl time.Duration) *LRUCache {
	if ttl < 0 {
		ttl = 0
	}
	return &LRUCache{lru: expirable.NewLRU[string, string](size, nil, ttl)}
}

func (c *LRUCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key, value string) {
	c.lru.Add(key, value)
}

func (c *LRUCache) Delete(_ context.Context, key string) {
	c.lru.Remove(key)
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	return c.lru.Len()
}

// RedisCache shares resolutions between processes.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a cache storing keys under prefix for ttl.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "simplecms:media:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		slog.Debug("media cache get failed", "error", err)
		return "", false
	}
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		slog.Debug("media cache set failed", "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		slog.Warn("media cache invalidation failed", "error", err)
	}
}

// TieredCache consults its tiers in order and backfills faster tiers on a
// hit in a slower one.
type TieredCache struct {
	tiers []Cache
}

// NewTieredCache creates a cache over tiers, fastest first.
func NewTieredCache(tiers ...Cache) *TieredCache {
	return &TieredCache{tiers: tiers}
}

func (c *TieredCache) Get(ctx context.Context, key string) (string, bool) {
	for i, tier := range c.tiers {
		if val, ok := tier.Get(ctx, key); ok {
			for _, faster := range c.tiers[:i] {
				faster.Set(ctx, key, val)
			}
			return val, true
		}
	}
	return "", false
}

func (c *TieredCache) Set(ctx context.Context, key, value string) {
	for _, tier := range c.tiers {
		tier.Set(ctx, key, value)
	}
}

func (c *TieredCache) Delete(ctx context.Context, key string) {
	for _, tier := range c.tiers {
		tier.Delete(ctx, key)
	}
}

var (
	_ Cache = (*LRUCache)(nil)
	_ Cache = (*RedisCache)(nil)
	_ Cache = (*TieredCache)(nil)
)
