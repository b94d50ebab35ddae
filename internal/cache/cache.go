// Package cache implements the bounded TTL resolution cache keyed by
// normalized moniker string (spec.md §4.I), built on golang-lru/v2 the
// same way the teacher's StoreManager wraps an LRU cache with an eviction
// callback.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry pairs a cached value with its expiry time.
type entry[V any] struct {
	value   V
	expires time.Time
}

// Cache is a bounded, TTL-expiring, LRU-evicting cache keyed by string.
// LRU eviction is handled by the underlying library; TTL expiry is
// checked on Get and swept periodically.
type Cache[V any] struct {
	lru        *lru.Cache[string, entry[V]]
	defaultTTL time.Duration
	mu         sync.Mutex

	stopOnce sync.Once
	stop     chan struct{}
}

// New builds a Cache with the given max size and default TTL.
func New[V any](maxSize int, defaultTTL time.Duration) *Cache[V] {
	if maxSize <= 0 {
		maxSize = 1000
	}
	l, _ := lru.New[string, entry[V]](maxSize)
	c := &Cache[V]{
		lru:        l,
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if time.Now().After(e.expires) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the cache's default TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores value under key with an explicit TTL.
func (c *Cache[V]) SetTTL(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, entry[V]{value: value, expires: time.Now().Add(ttl)})
}

// Remove evicts key if present.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
}

// Purge evicts every entry. Called on successful catalog reload.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Len returns the number of entries currently cached (including any not
// yet swept past expiry).
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// StartSweep runs a periodic background sweep that evicts expired entries,
// mirroring the teacher's cleanup-goroutine pattern. Call the returned
// function to stop it.
func (c *Cache[V]) StartSweep(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (c *Cache[V]) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, key := range c.lru.Keys() {
		e, ok := c.lru.Peek(key)
		if ok && now.After(e.expires) {
			c.lru.Remove(key)
		}
	}
}
