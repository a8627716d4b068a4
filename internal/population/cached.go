package population

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"beacon/internal/rip"
)

// Cached decorates a sizer with a TTL cache. Concurrent evaluations of the
// same dataset share one underlying count via singleflight instead of racing
// duplicate COUNT queries into the store.
type Cached struct {
	inner rip.PopulationSizer
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cachedCount
	group   singleflight.Group
}

type cachedCount struct {
	count    int
	cachedAt time.Time
}

// NewCached wraps a sizer with a TTL cache.
func NewCached(inner rip.PopulationSizer, ttl time.Duration) *Cached {
	return &Cached{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cachedCount),
	}
}

// Individuals returns the cached count when fresh, otherwise fetches it
// once and shares the result with concurrent callers.
func (c *Cached) Individuals(ctx context.Context, datasetID string) (int, error) {
	c.mu.RLock()
	entry, ok := c.entries[datasetID]
	c.mu.RUnlock()
	if ok && time.Since(entry.cachedAt) < c.ttl {
		return entry.count, nil
	}

	v, err, _ := c.group.Do(datasetID, func() (any, error) {
		count, err := c.inner.Individuals(ctx, datasetID)
		if err != nil {
			return 0, err
		}
		c.mu.Lock()
		c.entries[datasetID] = cachedCount{count: count, cachedAt: time.Now()}
		c.mu.Unlock()
		return count, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
