package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Cache provides thread-safe in-memory caching of encoded map tiles with
// TTL.
type Cache struct {
	entries map[string]*CacheEntry
	mutex   sync.RWMutex
	now     func() time.Time
}

// CacheEntry represents a cached item with metadata
type CacheEntry struct {
	Key       string        `json:"key"`
	Data      []byte        `json:"data"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
	TTL       time.Duration `json:"ttl"`
	Source    string        `json:"source"`
}

// NewCache creates a new in-memory cache
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]*CacheEntry),
		now:     time.Now,
	}
}

// Set stores data in cache. The slice is retained, callers must
// not modify it afterwards.
func (c *Cache) Set(key string, data []byte, ttl time.Duration, source string) {
	now := c.now()
	entry := &CacheEntry{
		Key:       key,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
		Source:    source,
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[key] = entry
}

// Get retrieves data from cache if not stale
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mutex.RLock()
	entry, exists := c.entries[key]
	c.mutex.RUnlock()

	if !exists || c.now().After(entry.ExpiresAt) {
		return nil, false
	}
	return entry.Data, true
}

// IsStale checks if cache entry is stale (past expiration)
func (c *Cache) IsStale(key string) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.entries[key]
	if !exists {
		return true
	}

	return c.now().After(entry.ExpiresAt)
}

// Delete removes an entry from cache
func (c *Cache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.entries, key)
}

// Clear removes all entries from cache
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
}

// Keys returns all cache keys
func (c *Cache) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	now := c.now()
	stats := CacheStats{
		TotalEntries: len(c.entries),
	}

	for _, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			stats.StaleEntries++
		} else {
			stats.FreshEntries++
		}
		stats.TotalBytes += len(entry.Data)

		if stats.OldestEntry.IsZero() || entry.CreatedAt.Before(stats.OldestEntry) {
			stats.OldestEntry = entry.CreatedAt
		}
		if entry.CreatedAt.After(stats.NewestEntry) {
			stats.NewestEntry = entry.CreatedAt
		}
	}

	return stats
}

// CleanupStale removes all stale entries from cache
func (c *Cache) CleanupStale() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	var removed int

	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}

	return removed
}

// StartPeriodicCleanup starts a goroutine that removes stale entries every
// interval until ctx is done.
func (c *Cache) StartPeriodicCleanup(ctx context.Context, interval time.Duration, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("Cache cleanup: recovered from panic", "error", r, zap.StackSkip("error.stack_trace", 1))
			}
		}()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := c.CleanupStale(); removed > 0 {
					logger.Debugw("Cache cleanup removed stale entries", "removed", removed)
				}
			}
		}
	}()
}

// CacheStats provides cache usage statistics
type CacheStats struct {
	TotalEntries int
	FreshEntries int
	StaleEntries int
	TotalBytes   int
	OldestEntry  time.Time
	NewestEntry  time.Time
}
