package cache

import (
	"context"
	"sync"
)

// Entry is the aggregate classification outcome stored per content key.
// Per-backend votes are never cached.
type Entry struct {
	Decision string `json:"decision"`
	Category string `json:"category"`
}

// Cache memoizes ensemble outcomes keyed by a content hash. It is purely an
// optimization: every record is processed at most once, so a cold or failing
// cache never affects correctness.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry) error
}

// MemoryCache lives for the process lifetime and grows without bound, which
// is acceptable for the volumes this pipeline sees.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Entry)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}
