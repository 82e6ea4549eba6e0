package store

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of fulltexts kept in memory.
const DefaultCacheSize = 1024

// Cache provides in-memory caching for directory fulltexts.
type Cache interface {
	Get(key string) ([]byte, bool)
	Add(key string, value []byte)
	Has(key string) bool
	Remove(key string)
	Clear()
}

// LRUCache is a Cache with least-recently-used eviction.
type LRUCache struct {
	items *lru.Cache[string, []byte]
}

// NewLRUCache creates a new LRU cache. A non-positive size falls back to
// DefaultCacheSize.
func NewLRUCache(maxSize int) *LRUCache {
	if maxSize <= 0 {
		maxSize = DefaultCacheSize
	}
	// lru.New only fails for non-positive sizes.
	items, _ := lru.New[string, []byte](maxSize)
	return &LRUCache{items: items}
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	return c.items.Get(key)
}

func (c *LRUCache) Add(key string, value []byte) {
	c.items.Add(key, value)
}

// Has checks for key without updating recency.
func (c *LRUCache) Has(key string) bool {
	return c.items.Contains(key)
}

func (c *LRUCache) Remove(key string) {
	c.items.Remove(key)
}

func (c *LRUCache) Clear() {
	c.items.Purge()
}

// Len returns the number of cached entries.
func (c *LRUCache) Len() int {
	return c.items.Len()
}
