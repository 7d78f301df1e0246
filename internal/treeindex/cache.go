package treeindex

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/starford/licaudit/internal/models"
)

// DefaultCacheEntries bounds the number of memoised indices.
const DefaultCacheEntries = 16

type cacheKey struct {
	kind       models.Kind
	generation uint64
}

// Cache memoises indices per attribution kind and snapshot generation. A
// new generation never sees an index built for an older one.
type Cache struct {
	entries *lru.Cache[cacheKey, *Index]
}

// NewCache returns a cache holding at most size indices.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheEntries
	}
	entries, err := lru.New[cacheKey, *Index](size)
	if err != nil {
		return nil, fmt.Errorf("treeindex: cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns the index for (kind, generation), building it from r2a on a
// miss. The caller guarantees r2a belongs to that generation.
func (c *Cache) Get(kind models.Kind, generation uint64, r2a models.ResourcesToAttributions) *Index {
	key := cacheKey{kind: kind, generation: generation}
	if idx, ok := c.entries.Get(key); ok {
		return idx
	}
	idx := Build(r2a)
	c.entries.Add(key, idx)
	return idx
}

// Len reports the number of cached indices.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Purge drops every cached index.
func (c *Cache) Purge() {
	c.entries.Purge()
}
