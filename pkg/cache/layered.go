package cache

import (
	"context"
	"time"
)

// LayeredCache fronts Redis with an in-process memory layer so repeated
// lookups of the same key skip the network entirely.
type LayeredCache struct {
	mem *MemoryCache
	rds *RedisCache
}

// NewLayeredCache creates a memory-over-Redis cache.
func NewLayeredCache(rds *RedisCache, opts ...LayeredOption) *LayeredCache {
	cfg := &LayeredConfig{MemoryMaxSize: 1000}
	for _, opt := range opts {
		opt(cfg)
	}
	return &LayeredCache{
		mem: NewMemoryCache(WithMemoryMaxSize(cfg.MemoryMaxSize)),
		rds: rds,
	}
}

// Set writes through: Redis first, then memory.
func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.rds.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, expiration)
	return nil
}

// Get tries memory, then Redis, promoting hits into memory.
func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.rds.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, dest, 0)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.rds.Delete(ctx, keys...)
}

// Exists consults Redis, the authoritative layer.
func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	return lc.rds.Exists(ctx, keys...)
}

// Close closes both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.rds.Close()
}
