package permission

import (
	"log/slog"
	"sync"
	"time"
)

type cacheKey struct {
	Kind       ResourceKind
	ResourceID int64
	UserID     int64
}

type cacheEntry struct {
	role      FineRole
	found     bool
	expiresAt time.Time
}

// Cache memoizes resolved permissions for a fixed TTL. Absence of a grant is
// cached too, so users without grants do not trigger an ancestry walk on
// every check. The cache is an injected instance with its own lifecycle, not
// a package global; Start launches the background sweep and Close stops it.
//
// Invalidation granularity: per (resource, user) for document grants; any
// directory-grant mutation clears the whole cache, because no reverse index
// of descendants is kept. Correctness over performance.
type Cache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	ttl           time.Duration
	sweepInterval time.Duration
	logger        *slog.Logger

	// now is replaceable in tests to drive expiry deterministically.
	now func() time.Time

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewCache(ttl, sweepInterval time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if sweepInterval <= 0 {
		sweepInterval = 10 * time.Minute
	}
	return &Cache{
		entries:       make(map[cacheKey]cacheEntry),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger,
		now:           time.Now,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Lookup returns the cached resolution for the key. hit is false on a miss
// or an expired entry; expired entries are deleted eagerly rather than left
// for the sweeper.
func (c *Cache) Lookup(kind ResourceKind, resourceID, userID int64) (role FineRole, found bool, hit bool) {
	key := cacheKey{Kind: kind, ResourceID: resourceID, UserID: userID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return "", false, false
	}

	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Store may have
		// refreshed the entry.
		if current, ok := c.entries[key]; ok && c.now().After(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false, false
	}

	return entry.role, entry.found, true
}

// Store caches a resolution, positive or negative, for the configured TTL.
func (c *Cache) Store(kind ResourceKind, resourceID, userID int64, role FineRole, found bool) {
	key := cacheKey{Kind: kind, ResourceID: resourceID, UserID: userID}
	entry := cacheEntry{role: role, found: found, expiresAt: c.now().Add(c.ttl)}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Invalidate drops the single (resource, user) entry.
func (c *Cache) Invalidate(kind ResourceKind, resourceID, userID int64) {
	key := cacheKey{Kind: kind, ResourceID: resourceID, UserID: userID}

	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateResource drops every cached entry for one resource, regardless
// of user.
func (c *Cache) InvalidateResource(kind ResourceKind, resourceID int64) {
	c.mu.Lock()
	for key := range c.entries {
		if key.Kind == kind && key.ResourceID == resourceID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// Clear drops everything. Used on any directory-grant mutation, since
// documents anywhere under the directory may inherit from it.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	return removed
}

// Len reports the current entry count.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Start launches the background sweep loop. Call Close to stop it.
func (c *Cache) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)

		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					c.logger.Debug("permission cache sweep", "removed", removed, "remaining", c.Len())
				}
			case <-c.stop:
				return
			}
		}
	}()
}

// Close stops the sweeper and waits for it to exit. Safe to call more than
// once; in-flight reads and writes are unaffected.
func (c *Cache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
		c.mu.RLock()
		started := c.started
		c.mu.RUnlock()
		if started {
			<-c.done
		}
	})
}
