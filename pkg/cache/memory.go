package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryEntry struct {
	value    interface{}
	expireAt time.Time
	touched  time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// MemoryCache is an in-process Service with a hard size cap. When full, Set
// evicts the least recently touched entry; a background sweep drops expired
// ones.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	maxSize int
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:       1000,
		SweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		maxSize: cfg.MaxSize,
		stop:    make(chan struct{}),
	}
	if cfg.SweepInterval > 0 {
		go mc.sweep(cfg.SweepInterval)
	}
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	now := time.Now()
	var expireAt time.Time
	if expiration > 0 {
		expireAt = now.Add(expiration)
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, exists := mc.entries[key]; !exists && mc.maxSize > 0 && len(mc.entries) >= mc.maxSize {
		mc.evictOldestLocked()
	}
	mc.entries[key] = &memoryEntry{value: value, expireAt: expireAt, touched: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	e, ok := mc.entries[key]
	if ok && e.expired(now) {
		delete(mc.entries, key)
		ok = false
	}
	if !ok {
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e.touched = now
	value := e.value
	mc.mu.Unlock()

	if strPtr, isStr := dest.(*string); isStr {
		if s, sOK := value.(string); sOK {
			*strPtr = s
			return nil
		}
	}

	// Round-trip through JSON so Get works for any dest type.
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

// Close stops the background sweep.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() { close(mc.stop) })
	return nil
}

// evictOldestLocked drops the least recently touched entry.
func (mc *MemoryCache) evictOldestLocked() {
	var victim string
	var oldest time.Time
	first := true
	for key, e := range mc.entries {
		if first || e.touched.Before(oldest) {
			victim, oldest = key, e.touched
			first = false
		}
	}
	if !first {
		delete(mc.entries, victim)
	}
}

func (mc *MemoryCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case now := <-ticker.C:
			mc.mu.Lock()
			for key, e := range mc.entries {
				if e.expired(now) {
					delete(mc.entries, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}
