package rbackit

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheTTL is how long a cached permission stays valid.
	DefaultCacheTTL = 300 * time.Second

	// DefaultCacheSize is the maximum number of cached permissions.
	DefaultCacheSize = 1024
)

// CacheMetrics reports cache effectiveness.
type CacheMetrics struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"` // entries dropped for any reason
	Size      int     `json:"size"`
	HitRate   float64 `json:"hit_rate"`
}

// CachedStorage decorates a Storage with a TTL cache of permissions keyed by ID.
// Permission writes through the decorator invalidate their entry; writes made
// directly against the wrapped storage become visible once the entry expires.
// Every other operation is delegated unchanged.
type CachedStorage struct {
	Storage

	cache *lru.LRU[int64, Permission]
	ttl   time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCachedStorage wraps next with a permission cache. Non-positive size or ttl
// select DefaultCacheSize and DefaultCacheTTL.
func NewCachedStorage(next Storage, size int, ttl time.Duration) *CachedStorage {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &CachedStorage{Storage: next, ttl: ttl}
	c.cache = lru.NewLRU[int64, Permission](size, func(int64, Permission) {
		c.evictions.Add(1)
	}, ttl)
	return c
}

// FetchPermissionByID serves the permission from cache when present.
func (c *CachedStorage) FetchPermissionByID(ctx context.Context, id int64) (*Permission, bool) {
	if p, ok := c.cache.Get(id); ok {
		c.hits.Add(1)
		return &p, true
	}
	c.misses.Add(1)

	p, ok := c.Storage.FetchPermissionByID(ctx, id)
	if ok {
		c.cache.Add(p.ID, *p)
	}
	return p, ok
}

// FetchPermissionsByID serves cached permissions and fetches the rest in one call.
func (c *CachedStorage) FetchPermissionsByID(ctx context.Context, ids []int64) []*Permission {
	ids = uniqueIDs(ids)
	perms := make([]*Permission, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		if p, ok := c.cache.Get(id); ok {
			c.hits.Add(1)
			perms = append(perms, &p)
			continue
		}
		c.misses.Add(1)
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return perms
	}

	for _, p := range c.Storage.FetchPermissionsByID(ctx, missing) {
		c.cache.Add(p.ID, *p)
		perms = append(perms, p)
	}
	return perms
}

// SavePermission delegates and drops the cached entry on success.
func (c *CachedStorage) SavePermission(ctx context.Context, p *Permission) (bool, error) {
	ok, err := c.Storage.SavePermission(ctx, p)
	if ok {
		c.cache.Remove(p.ID)
	}
	return ok, err
}

// DeletePermission delegates and drops the cached entry on success.
func (c *CachedStorage) DeletePermission(ctx context.Context, p *Permission) (bool, error) {
	var id int64
	if p != nil {
		id = p.ID
	}
	ok, err := c.Storage.DeletePermission(ctx, p)
	if ok {
		c.cache.Remove(id)
	}
	return ok, err
}

// Purge empties the cache.
func (c *CachedStorage) Purge() {
	c.cache.Purge()
}

// TTL returns the lifetime of cache entries.
func (c *CachedStorage) TTL() time.Duration {
	return c.ttl
}

// Stats returns the current cache metrics.
func (c *CachedStorage) Stats() CacheMetrics {
	m := CacheMetrics{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Size:      c.cache.Len(),
	}
	if total := m.Hits + m.Misses; total > 0 {
		m.HitRate = float64(m.Hits) / float64(total)
	}
	return m
}
