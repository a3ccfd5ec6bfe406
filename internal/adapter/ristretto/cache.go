// Package ristretto provides an in-process L1 cache backed by dgraph-io/ristretto.
// The host service uses it for hover results; launch commands are never cached.
package ristretto

import (
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a byte-value cache with per-entry TTL.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// New creates a ristretto-backed cache. maxCostBytes is the maximum total
// size of cached values in bytes.
func New(maxCostBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	return c.c.Get(key)
}

// Set stores a value in the cache with the given TTL. Admission is
// best-effort; a rejected entry is not an error.
func (c *Cache) Set(key string, value []byte, ttl time.Duration) {
	c.c.SetWithTTL(key, value, int64(len(value)), ttl)
}

// Delete removes a value from the cache.
func (c *Cache) Delete(key string) {
	c.c.Del(key)
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
