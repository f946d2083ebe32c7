package rbac

import (
	"sync"
	"time"
)

// PermissionCache is an explicit, injected, time-boxed cache of resolved
// permission sets. Staleness is bounded by the TTL; catalog-mutating writes
// call Invalidate to restore freshness immediately.
type PermissionCache struct {
	mu      sync.RWMutex
	entries map[int64]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	set       PermissionSet
	expiresAt time.Time
}

// NewPermissionCache constructs a cache with the given TTL. A zero or
// negative TTL disables caching entirely.
func NewPermissionCache(ttl time.Duration) *PermissionCache {
	return &PermissionCache{
		entries: make(map[int64]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached permission set for a user, if present and fresh.
func (c *PermissionCache) Get(userID int64) (PermissionSet, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.set, true
}

// Put stores a resolved permission set.
func (c *PermissionCache) Put(userID int64, set PermissionSet) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[userID] = cacheEntry{set: set, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate drops every cached entry. Role, permission and assignment
// mutations affect an unknown set of users, so the whole cache goes.
func (c *PermissionCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[int64]cacheEntry)
	c.mu.Unlock()
}
