package cache

import (
	"sync"
	"time"
)

type entry struct {
	v   any
	exp time.Time
}

// TTLCache is a bounded in-memory cache with time-based eviction. When full,
// Set evicts the entry closest to expiry. Used for signal deduplication,
// where losing entries on restart is acceptable.
type TTLCache struct {
	mu         sync.RWMutex
	m          map[string]entry
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewTTLCache creates a cache holding at most maxEntries items, sweeping
// expired entries every sweep interval. maxEntries <= 0 means unbounded;
// sweep <= 0 disables the janitor.
func NewTTLCache(maxEntries int, sweep time.Duration) *TTLCache {
	c := &TTLCache{
		m:          make(map[string]entry),
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	if sweep > 0 {
		go c.janitor(sweep)
	}
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		c.mu.Lock()
		delete(c.m, key)
		c.mu.Unlock()
		return nil, false
	}
	return e.v, true
}

func (c *TTLCache) Set(key string, v any, ttl time.Duration) {
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.mu.Lock()
	if c.maxEntries > 0 && len(c.m) >= c.maxEntries {
		if _, exists := c.m[key]; !exists {
			c.evictLocked()
		}
	}
	c.m[key] = entry{v: v, exp: exp}
	c.mu.Unlock()
}

// Len returns the number of live entries, expired ones included until swept.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Close stops the janitor.
func (c *TTLCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictLocked drops the entry with the earliest expiry.
func (c *TTLCache) evictLocked() {
	var victim string
	var earliest time.Time
	first := true
	for k, e := range c.m {
		if first || e.exp.Before(earliest) {
			victim, earliest = k, e.exp
			first = false
		}
	}
	if !first {
		delete(c.m, victim)
	}
}

func (c *TTLCache) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for k, e := range c.m {
				if !e.exp.IsZero() && now.After(e.exp) {
					delete(c.m, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
