// Package jwkset fetches, selects from, and caches JSON Web Key Sets
// published at an authorization server's jwks_uri.
package jwkset

import (
	"sync"
	"time"

	"github.com/oidcrp/oidcrp/pkg/jose"
)

// staleAfter is the window after which a cached set is considered
// stale and evicted on the next zero-candidate selection miss.
const staleAfter = 5 * time.Hour

// entry is one cached JWKS document, keyed by jwks_uri.
type entry struct {
	set *jose.KeySet
	iat time.Time
}

func (e *entry) stale(now time.Time) bool {
	return now.Sub(e.iat) >= staleAfter
}

// Cache is a bounded, two-bucket LRU keyed by jwks_uri: the "active"
// bucket holds recently touched entries, the "previous" bucket holds
// everything evicted from active since the last rotation. A lookup
// promotes a previous-bucket hit back into active; once active fills
// to capacity, previous is discarded and active becomes the new
// previous. This amortizes to O(1) per operation without the
// bookkeeping of a doubly-linked-list LRU.
type Cache struct {
	mu       sync.Mutex
	capacity int
	active   map[string]*entry
	previous map[string]*entry
}

// NewCache builds a Cache holding up to capacity entries per bucket.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 32
	}
	return &Cache{
		capacity: capacity,
		active:   make(map[string]*entry, capacity),
		previous: make(map[string]*entry),
	}
}

func (c *Cache) get(jwksURI string) (*entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.active[jwksURI]; ok {
		return e, true
	}
	if e, ok := c.previous[jwksURI]; ok {
		c.promote(jwksURI, e)
		return e, true
	}
	return nil, false
}

func (c *Cache) put(jwksURI string, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.promote(jwksURI, e)
}

func (c *Cache) evict(jwksURI string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, jwksURI)
	delete(c.previous, jwksURI)
}

// promote inserts e into active, rotating active into previous first
// if active is already at capacity.
func (c *Cache) promote(jwksURI string, e *entry) {
	if _, ok := c.active[jwksURI]; !ok && len(c.active) >= c.capacity {
		c.previous = c.active
		c.active = make(map[string]*entry, c.capacity)
	}
	delete(c.previous, jwksURI)
	c.active[jwksURI] = e
}
