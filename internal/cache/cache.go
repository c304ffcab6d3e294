package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"tebaspos/backend/internal/domain"
)

const statsPrefix = "stats:"

// StatsCache stores rendered dashboards. Keys start with StoreKeyPrefix so a
// store's entries can be dropped together after a sale changes the numbers.
type StatsCache interface {
	Get(ctx context.Context, key string) (*domain.Dashboard, bool, error)
	Set(ctx context.Context, key string, value *domain.Dashboard, ttl time.Duration) error
	Invalidate(ctx context.Context, storeID string) error
}

// StoreKeyPrefix is the prefix every cached dashboard of storeID starts with.
func StoreKeyPrefix(storeID string) string {
	return statsPrefix + storeID + ":"
}

type NoopStatsCache struct{}

func (NoopStatsCache) Get(_ context.Context, _ string) (*domain.Dashboard, bool, error) {
	return nil, false, nil
}

func (NoopStatsCache) Set(_ context.Context, _ string, _ *domain.Dashboard, _ time.Duration) error {
	return nil
}

func (NoopStatsCache) Invalidate(_ context.Context, _ string) error {
	return nil
}

// MemoryStatsCache is an in-process cache for single-instance deployments
// and tests.
type MemoryStatsCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     domain.Dashboard
	expiresAt time.Time
}

func NewMemoryStatsCache() *MemoryStatsCache {
	return &MemoryStatsCache{now: time.Now, entries: map[string]memoryEntry{}}
}

func (c *MemoryStatsCache) Get(_ context.Context, key string) (*domain.Dashboard, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *MemoryStatsCache) Set(_ context.Context, key string, value *domain.Dashboard, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := memoryEntry{value: *value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

func (c *MemoryStatsCache) Invalidate(_ context.Context, storeID string) error {
	prefix := StoreKeyPrefix(storeID)
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}
