// Package cache holds the resolver result cache (§4.11): repeated
// place-name lookups are cheap to cache since the gazetteer itself never
// changes during the process lifetime. Adapted from the teacher's weather
// response cache (Cache/InMemoryCache) — same Get/Set/TTL shape, retargeted
// at resolver.Result and made safe for the tool server's concurrent callers.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weathertools/internal/resolver"
)

// Cache defines the interface for resolver-result caching implementations.
type Cache interface {
	Get(ctx context.Context, key string) (resolver.Result, bool, error)
	Set(ctx context.Context, key string, value resolver.Result, ttl time.Duration) error
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based
// expiration. Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry
}

type cacheEntry struct {
	value     resolver.Result
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]cacheEntry)}
}

// Get retrieves a cached resolver result for key if present and not expired.
func (c *InMemoryCache) Get(ctx context.Context, key string) (resolver.Result, bool, error) {
	c.mu.RLock()
	entry, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return resolver.Result{}, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.data, key)
		c.mu.Unlock()
		return resolver.Result{}, false, nil
	}
	return entry.value, true, nil
}

// Set stores value in cache with the given TTL.
func (c *InMemoryCache) Set(ctx context.Context, key string, value resolver.Result, ttl time.Duration) error {
	c.mu.Lock()
	c.data[key] = cacheEntry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
