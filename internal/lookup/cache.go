package lookup

import (
	"context"
	"sync"
	"time"
)

// Cache keeps resolved maps for a fixed TTL in front of another Resolver.
// Failures are never cached.
type Cache struct {
	next Resolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[Category]cacheEntry
}

type cacheEntry struct {
	m         *Map
	expiresAt time.Time
}

func NewCache(next Resolver, ttl time.Duration) *Cache {
	return &Cache{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[Category]cacheEntry),
	}
}

func (c *Cache) Resolve(ctx context.Context, cat Category) (*Map, error) {
	c.mu.Lock()
	e, ok := c.entries[cat]
	c.mu.Unlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.m, nil
	}

	m, err := c.next.Resolve(ctx, cat)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[cat] = cacheEntry{m: m, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return m, nil
}

// Invalidate drops the cached map for one category.
func (c *Cache) Invalidate(cat Category) {
	c.mu.Lock()
	delete(c.entries, cat)
	c.mu.Unlock()
}

// InvalidateAll drops every cached map.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[Category]cacheEntry)
	c.mu.Unlock()
}
