package transport

import (
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
)

// dedupCache remembers recently-seen envelope IDs so a delta gossiped
// through several hops of the cluster is applied, and relayed, only once.
type dedupCache struct {
	cache *lru.Cache
}

func newDedupCache(capacity int) *dedupCache {
	if capacity <= 0 {
		capacity = 10000
	}
	c, _ := lru.New(capacity) // only errors on capacity <= 0, already guarded above
	return &dedupCache{cache: c}
}

func (d *dedupCache) seen(id uuid.UUID) bool {
	return d.cache.Contains(id)
}

func (d *dedupCache) mark(id uuid.UUID) {
	d.cache.Add(id, struct{}{})
}

func (d *dedupCache) Len() int { return d.cache.Len() }
