// v1
// internal/cache/cache.go
package cache

import (
	"sync"
	"time"
)

// Observer is notified on lookups; used to feed cache metrics.
type Observer interface {
	CacheHit(name string)
	CacheMiss(name string)
}

type entry[T any] struct {
	val T
	exp time.Time
}

// Cache is a TTL map. Expiry here is independent of the audit ledger's own
// retention sweep.
type Cache[T any] struct {
	mu   sync.RWMutex
	name string
	m    map[string]entry[T]
	ttl  time.Duration
	obs  Observer
}

func New[T any](name string, ttl time.Duration, obs Observer) *Cache[T] {
	return &Cache[T]{name: name, m: make(map[string]entry[T]), ttl: ttl, obs: obs}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	var zero T
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		if c.obs != nil {
			c.obs.CacheMiss(c.name)
		}
		return zero, false
	}
	if c.obs != nil {
		c.obs.CacheHit(c.name)
	}
	return e.val, true
}

func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	c.m[key] = entry[T]{val: v, exp: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}
