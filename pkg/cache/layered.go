package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
// Without a Redis layer it degrades to the memory cache alone.
type LayeredCache struct {
	memCache   *MemoryCache
	redisCache *RedisCache
	l1TTL      time.Duration
}

// NewLayeredCache creates a layered cache; redisCache may be nil.
func NewLayeredCache(redisCache *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{
		MemoryMaxSize: 1000,
		L1TTL:         time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	memOpts := []MemoryOption{WithMemoryMaxSize(cfg.MemoryMaxSize)}
	if cfg.CleanupInterval > 0 {
		memOpts = append(memOpts, WithMemoryCleanup(cfg.CleanupInterval))
	}

	return &LayeredCache{
		memCache:   NewMemoryCache(memOpts...),
		redisCache: redisCache,
		l1TTL:      cfg.L1TTL,
	}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if lc.redisCache != nil {
		if err := lc.redisCache.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return lc.memCache.Set(ctx, key, value, lc.memTTL(expiration))
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	err := lc.memCache.Get(ctx, key, dest)
	if err == nil || lc.redisCache == nil || !errors.Is(err, ErrCacheMiss) {
		return err
	}

	data, err := lc.redisCache.getBytes(ctx, key)
	if err != nil {
		return err
	}
	_ = lc.memCache.setBytes(key, data, lc.l1TTL)
	return lc.memCache.Get(ctx, key, dest)
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.memCache.Delete(ctx, keys...)
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Delete(ctx, keys...)
}

func (lc *LayeredCache) DeleteByPattern(ctx context.Context, pattern string) error {
	if err := lc.memCache.DeleteByPattern(ctx, pattern); err != nil {
		return err
	}
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.DeleteByPattern(ctx, pattern)
}

func (lc *LayeredCache) Ping(ctx context.Context) error {
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Ping(ctx)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.memCache.Close()
	if lc.redisCache == nil {
		return nil
	}
	return lc.redisCache.Close()
}

// memTTL keeps L1 entries no longer than the L2 entry they shadow.
func (lc *LayeredCache) memTTL(expiration time.Duration) time.Duration {
	if lc.redisCache == nil || (expiration > 0 && expiration < lc.l1TTL) {
		return expiration
	}
	return lc.l1TTL
}
