package cache

import (
	"context"
	"sync"
)

type entryKey struct {
	userID string
	dayKey string
}

// MemoryEntryCache is a process-local EntryCache.
type MemoryEntryCache struct {
	mu      sync.RWMutex
	entries map[entryKey]string
}

// NewMemoryEntryCache returns an empty MemoryEntryCache.
func NewMemoryEntryCache() *MemoryEntryCache {
	return &MemoryEntryCache{entries: make(map[entryKey]string)}
}

func (c *MemoryEntryCache) Get(_ context.Context, userID, dayKey string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.entries[entryKey{userID, dayKey}]
	return id, ok, nil
}

func (c *MemoryEntryCache) Set(_ context.Context, userID, dayKey, entryID string) error {
	c.mu.Lock()
	c.entries[entryKey{userID, dayKey}] = entryID
	c.mu.Unlock()
	return nil
}

func (c *MemoryEntryCache) Prune(_ context.Context, current string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.dayKey != current {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len reports the number of cached mappings.
func (c *MemoryEntryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// MemoryHistoryCache is a process-local HistoryCache holding at most Limit
// days per user.
type MemoryHistoryCache struct {
	Limit int

	mu   sync.RWMutex
	days map[string][]string
}

// NewMemoryHistoryCache returns an empty cache capped at limit days per user.
func NewMemoryHistoryCache(limit int) *MemoryHistoryCache {
	return &MemoryHistoryCache{Limit: limit, days: make(map[string][]string)}
}

func (c *MemoryHistoryCache) Days(_ context.Context, userID string) ([]string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src, ok := c.days[userID]
	if !ok {
		return nil, false, nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out, true, nil
}

func (c *MemoryHistoryCache) Put(_ context.Context, userID string, days []string) error {
	c.mu.Lock()
	c.days[userID] = newestFirst(days, c.Limit)
	c.mu.Unlock()
	return nil
}

func (c *MemoryHistoryCache) Add(_ context.Context, userID, day string) error {
	c.mu.Lock()
	c.days[userID] = newestFirst(append([]string{day}, c.days[userID]...), c.Limit)
	c.mu.Unlock()
	return nil
}
