package cache

import (
	"context"
	"sync"
	"time"
)

var _ Cache = (*MemoryCache)(nil)

// purgeEvery bounds how many writes happen between sweeps of expired items
const purgeEvery = 256

type item struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is the process-local fallback used when no Redis address is configured
type MemoryCache struct {
	mu     sync.Mutex
	items  map[string]item
	writes int
	now    func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		items: make(map[string]item),
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		return "", false, nil
	}

	if c.now().After(it.expiresAt) {
		delete(c.items, key)
		return "", false, nil
	}

	return it.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = item{value: value, expiresAt: c.now().Add(ttl)}

	c.writes++
	if c.writes%purgeEvery == 0 {
		c.purge()
	}

	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *MemoryCache) purge() {
	now := c.now()
	for key, it := range c.items {
		if now.After(it.expiresAt) {
			delete(c.items, key)
		}
	}
}
