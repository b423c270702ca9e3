package cache

import (
	"sync"
	"time"
)

// SimpleCache is a in-memory cache with small TTL to minimize the
// Redis round trips of the query surface.
type SimpleCache struct {
	items map[string]simpleCacheItem
	mu    sync.RWMutex
}

type simpleCacheItem struct {
	value     any
	expiresAt time.Time
}

// NewSimpleCache creates an empty memory cache.
func NewSimpleCache() *SimpleCache {
	return &SimpleCache{
		items: make(map[string]simpleCacheItem),
	}
}

// Get returns the value of a key, nil when absent or expired.
func (sc *SimpleCache) Get(key string) any {
	sc.mu.RLock()
	item, exists := sc.items[key]
	sc.mu.RUnlock()

	if !exists {
		return nil
	}

	if time.Now().After(item.expiresAt) {
		sc.mu.Lock()
		delete(sc.items, key)
		sc.mu.Unlock()
		return nil
	}

	return item.value
}

// Set stores a key with the given TTL.
func (sc *SimpleCache) Set(key string, value any, ttl time.Duration) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.items[key] = simpleCacheItem{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}
