// Package rolecache memoizes effective-role lookups so routing does not
// hit the datastore on every update.
package rolecache

import (
	"context"
	"sync"

	"brokerbot/internal/store"
)

// Resolver is the lookup the cache fronts, satisfied by *store.UserStore.
type Resolver interface {
	EffectiveRole(ctx context.Context, id int64) (store.Role, store.UserStatus, error)
}

type entry struct {
	role   store.Role
	status store.UserStatus
}

// Cache memoizes (role, status) per user id. Entries never expire on
// their own; grant changes must call Invalidate so the next resolution
// re-reads the store.
type Cache struct {
	resolver Resolver

	mu      sync.RWMutex
	entries map[int64]entry
	admins  map[int64]struct{}
	marked  map[int64]struct{}
}

func New(resolver Resolver, admins map[int64]struct{}) *Cache {
	set := make(map[int64]struct{}, len(admins))
	for id := range admins {
		set[id] = struct{}{}
	}
	return &Cache{
		resolver: resolver,
		entries:  make(map[int64]entry),
		admins:   set,
		marked:   make(map[int64]struct{}),
	}
}

// Resolve returns the user's effective role and status, reading the store
// only on a miss. Lookup errors are returned, not cached.
func (c *Cache) Resolve(ctx context.Context, id int64) (store.Role, store.UserStatus, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return e.role, e.status, nil
	}

	role, status, err := c.resolver.EffectiveRole(ctx, id)
	if err != nil {
		return store.RoleNone, store.StatusPending, err
	}
	c.mu.Lock()
	c.entries[id] = entry{role: role, status: status}
	c.mu.Unlock()
	return role, status, nil
}

// Invalidate evicts the user's entry. Eviction rather than in-place
// update keeps the store authoritative: the next Resolve re-derives.
func (c *Cache) Invalidate(id int64) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// IsAdmin reports whether the id is a known administrator: either in the
// configured set, which passes even before first contact, or marked
// after a completed bootstrap.
func (c *Cache) IsAdmin(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.admins[id]; ok {
		return true
	}
	_, ok := c.marked[id]
	return ok
}

// MarkAdmin records that the identity finished its administrator
// bootstrap. Later starts consult the mark instead of re-reading the
// store.
func (c *Cache) MarkAdmin(id int64) {
	c.mu.Lock()
	c.marked[id] = struct{}{}
	c.mu.Unlock()
}

// AdminMarked reports whether the bootstrap already ran for the id.
func (c *Cache) AdminMarked(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.marked[id]
	return ok
}
