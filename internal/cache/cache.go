// Package cache implements the TTL-bounded pool cache.
//
// The cache is the one piece of mutable state shared between the
// collector, the detector, and every distribution loop. Readers receive
// shared *model.PoolRecord handles; records are treated as immutable
// after insertion, so handles are never copied defensively.
package cache

import (
	"sync"
	"time"

	"github.com/dexwatch/dexwatch/internal/model"
)

type entry struct {
	record     *model.PoolRecord
	insertedAt time.Time
}

// Cache stores the latest known record per composite key
// ("source:chain:pool_address"). Writes are last-write-wins.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry

	ttl           time.Duration
	purgeInterval time.Duration
	lastPurge     time.Time

	// now is injectable for TTL tests.
	now func() time.Time
}

// New creates a cache with the given TTL and purge rate limit.
func New(ttl, purgeInterval time.Duration) *Cache {
	return &Cache{
		entries:       make(map[string]entry),
		ttl:           ttl,
		purgeInterval: purgeInterval,
		now:           time.Now,
	}
}

// Get returns the shared handle for a key if present. TTL is not
// enforced here; single-key lookups serve existence checks, and bulk
// enumeration is the TTL enforcement point.
func (c *Cache) Get(key string) (*model.PoolRecord, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return e.record, true
}

// Insert upserts a record under the given key, unconditionally
// overwriting any existing entry.
func (c *Cache) Insert(key string, record *model.PoolRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry{record: record, insertedAt: c.now()}
}

// GetAll returns shared handles to every live entry (age < TTL).
// Expired entries are excluded but not removed; Purge handles removal.
func (c *Cache) GetAll() []*model.PoolRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	result := make([]*model.PoolRecord, 0, len(c.entries))
	for _, e := range c.entries {
		if now.Sub(e.insertedAt) < c.ttl {
			result = append(result, e.record)
		}
	}
	return result
}

// PurgeIfDue removes expired entries, but only performs the full scan
// if the purge interval has elapsed since the previous purge. Safe to
// call from an independent periodic task.
func (c *Cache) PurgeIfDue() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastPurge) < c.purgeInterval {
		return 0
	}
	c.lastPurge = now

	removed := 0
	for key, e := range c.entries {
		if now.Sub(e.insertedAt) >= c.ttl {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of stored entries, including expired ones
// that have not been purged yet. An intentional approximation for
// statistics.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
