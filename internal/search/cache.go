package search

import (
	"container/list"
	"sync"

	"moviefinder/internal/domain"
	"moviefinder/internal/metrics"
)

// ResultCache maps cache keys to paginated results. Entries never expire;
// they are dropped only by Invalidate or, when maxEntries > 0, by
// least-recently-used eviction.
type ResultCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List
}

type cachedResult struct {
	key    string
	result domain.PaginatedResult
}

// NewResultCache returns an empty cache. maxEntries <= 0 means unbounded.
func NewResultCache(maxEntries int) *ResultCache {
	return &ResultCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *ResultCache) Get(key string) (domain.PaginatedResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		metrics.ResultCacheMissesTotal.Inc()
		return domain.PaginatedResult{}, false
	}
	metrics.ResultCacheHitsTotal.Inc()
	c.order.MoveToFront(elem)
	return elem.Value.(*cachedResult).result.Clone(), true
}

func (c *ResultCache) Put(key string, result domain.PaginatedResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cachedResult).result = result.Clone()
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(&cachedResult{key: key, result: result.Clone()})
	c.trimLocked()
}

func (c *ResultCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

func (c *ResultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ResultCache) trimLocked() {
	if c.maxEntries <= 0 {
		return
	}
	for len(c.entries) > c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			return
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cachedResult).key)
	}
}
