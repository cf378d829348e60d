package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

// ResponseCache stores raw catalog responses by key.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Close() error
}

// CacheKey derives the cache key for one catalog query.
func CacheKey(endpoint string, params url.Values) string {
	hash := sha256.Sum256([]byte(endpoint + "?" + params.Encode()))
	return fmt.Sprintf("gdc:%s:%x", endpoint, hash[:16])
}

// NewResponseCache builds the configured cache tiers. It returns nil when
// caching is disabled.
func NewResponseCache(config domain.CacheConfig) (ResponseCache, error) {
	if !config.Enabled {
		return nil, nil
	}

	var tiers []ResponseCache
	if config.MemorySize > 0 {
		tiers = append(tiers, NewMemoryCache(config.MemorySize, config.MemoryTTL))
	}
	if config.RedisURL != "" {
		rc, err := NewRedisCache(config)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, rc)
	}

	switch len(tiers) {
	case 0:
		return nil, nil
	case 1:
		return tiers[0], nil
	default:
		return NewTieredCache(tiers...), nil
	}
}

// RedisCache wraps a Redis client for catalog responses
type RedisCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedResponse is a cached body with metadata
type cachedResponse struct {
	Data      []byte    `json:"data"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisCache creates a new Redis-backed cache
func NewRedisCache(config domain.CacheConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	opts.MaxRetries = config.MaxRetries

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		redis:      client,
		defaultTTL: config.DefaultTTL,
	}, nil
}

// Get retrieves a cached response
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get cached response: %w", err)
	}

	var cached cachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Corrupted entry
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Data, true, nil
}

// Set caches a response
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := time.Now()
	payload, err := json.Marshal(cachedResponse{
		Data:      data,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cached response: %w", err)
	}

	return c.redis.Set(ctx, key, payload, ttl).Err()
}

// Ping checks if Redis connection is alive
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// MemoryCache is an in-process LRU with a fixed entry TTL
type MemoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache creates a new in-memory cache holding at most size entries
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	return &MemoryCache{lru: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// Get retrieves a cached response
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.lru.Get(key)
	return data, ok, nil
}

// Set caches a response. The per-call ttl is ignored in favour of the cache TTL.
func (c *MemoryCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.lru.Add(key, data)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Close purges the cache
func (c *MemoryCache) Close() error {
	c.lru.Purge()
	return nil
}

// TieredCache checks tiers in order and backfills faster tiers on a hit.
type TieredCache struct {
	tiers []ResponseCache
}

// NewTieredCache creates a cache over tiers, fastest first
func NewTieredCache(tiers ...ResponseCache) *TieredCache {
	return &TieredCache{tiers: tiers}
}

// Get returns the first hit. Tier errors are treated as misses.
func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, tier := range c.tiers {
		data, found, err := tier.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		for _, upper := range c.tiers[:i] {
			_ = upper.Set(ctx, key, data, 0)
		}
		return data, true, nil
	}
	return nil, false, nil
}

// Set writes to every tier and returns the first error.
func (c *TieredCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	var firstErr error
	for _, tier := range c.tiers {
		if err := tier.Set(ctx, key, data, ttl); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close closes every tier and returns the first error.
func (c *TieredCache) Close() error {
	var firstErr error
	for _, tier := range c.tiers {
		if err := tier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
