package repository

import (
	"context"
	"sync"
	"time"

	"canary/internal/models"
)

// MemoryItemCache keeps the item list in process memory until the TTL passes.
type MemoryItemCache struct {
	mu        sync.RWMutex
	items     []models.Item
	expiresAt time.Time
	version   uint64
	ttl       time.Duration
	now       func() time.Time
}

func NewMemoryItemCache(ttl time.Duration) *MemoryItemCache {
	return &MemoryItemCache{ttl: ttl, now: time.Now}
}

func (c *MemoryItemCache) GetItems(_ context.Context) ([]models.Item, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.items == nil || !c.now().Before(c.expiresAt) {
		return nil, false, nil
	}
	return append([]models.Item(nil), c.items...), true, nil
}

func (c *MemoryItemCache) Version(_ context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version, nil
}

// SetItems is a no-op when Invalidate ran after version was read.
func (c *MemoryItemCache) SetItems(_ context.Context, items []models.Item, version uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if version != c.version {
		return nil
	}
	c.items = append(make([]models.Item, 0, len(items)), items...)
	c.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryItemCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.version++
	return nil
}
