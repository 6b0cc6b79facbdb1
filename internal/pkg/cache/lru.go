// Package cache provides bounded, explicitly owned caches.
package cache

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size-capped cache with optional per-entry expiry. It is safe for
// concurrent use. Expired entries are treated as misses and evicted on read.
type LRU[K comparable, V any] struct {
	entries *lru.Cache[K, entry[V]]
	ttl     time.Duration
	now     func() time.Time
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewLRU creates a cache holding at most size entries. A ttl of 0 disables expiry.
func NewLRU[K comparable, V any](size int, ttl time.Duration) (*LRU[K, V], error) {
	c, err := lru.New[K, entry[V]](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU[K, V]{entries: c, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached value and whether it was present and fresh.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.ttl > 0 && !c.now().Before(e.expiresAt) {
		c.entries.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Add stores value under key, evicting the least recently used entry when full.
func (c *LRU[K, V]) Add(key K, value V) {
	e := entry[V]{value: value}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}
	c.entries.Add(key, e)
}

// Contains reports presence without refreshing recency.
func (c *LRU[K, V]) Contains(key K) bool {
	if c.ttl == 0 {
		return c.entries.Contains(key)
	}
	e, ok := c.entries.Peek(key)
	return ok && c.now().Before(e.expiresAt)
}

// Remove deletes key.
func (c *LRU[K, V]) Remove(key K) {
	c.entries.Remove(key)
}

// Len returns the number of stored entries, including expired ones not yet evicted.
func (c *LRU[K, V]) Len() int {
	return c.entries.Len()
}
