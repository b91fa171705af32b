// Package cache keeps a time-bounded snapshot of the review table so the
// dashboard does not hit the database on every request.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/internal/metrics"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	gocache "github.com/patrickmn/go-cache"
)

const snapshotKey = "reviews:all"

// Snapshot is an immutable copy of every stored review, ordered by id
// descending, as of FetchedAt.
type Snapshot struct {
	Reviews   []model.Review
	FetchedAt time.Time
}

// LoaderFunc reads the full review table.
type LoaderFunc func(ctx context.Context) ([]model.Review, error)

// SnapshotCache serves the review snapshot until it expires or a write
// invalidates it.
type SnapshotCache struct {
	store   *gocache.Cache
	ttl     time.Duration
	loader  LoaderFunc
	metrics *metrics.Metrics
	now     func() time.Time

	// serializes loads so concurrent misses hit the database once
	mu sync.Mutex

	// genMu guards gen and the store writes that depend on it. It is never
	// held across a load, so Invalidate does not wait for the database.
	genMu sync.Mutex
	gen   uint64
}

// NewSnapshotCache creates a cache with the given TTL. m may be nil.
func NewSnapshotCache(ttl time.Duration, loader LoaderFunc, m *metrics.Metrics) *SnapshotCache {
	return &SnapshotCache{
		store:   gocache.New(ttl, ttl*2),
		ttl:     ttl,
		loader:  loader,
		metrics: m,
		now:     time.Now,
	}
}

// Get returns the cached snapshot, loading it when absent or expired.
func (c *SnapshotCache) Get(ctx context.Context) (*Snapshot, error) {
	if snap, ok := c.cached(); ok {
		c.metrics.RecordSnapshotLookup(true)
		return snap, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// another caller may have loaded while we waited
	if snap, ok := c.cached(); ok {
		c.metrics.RecordSnapshotLookup(true)
		return snap, nil
	}
	c.metrics.RecordSnapshotLookup(false)

	gen := c.generation()
	reviews, err := c.loader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load review snapshot: %w", err)
	}

	snap := &Snapshot{Reviews: reviews, FetchedAt: c.now()}
	if !c.storeIfCurrent(gen, snap) {
		// a write landed while loading; the next Get reloads
		logger.Debug("Review snapshot discarded", map[string]interface{}{
			"reviews": len(reviews),
		})
		return snap, nil
	}
	c.metrics.SetSnapshotSize(len(reviews))

	logger.Debug("Review snapshot loaded", map[string]interface{}{
		"reviews": len(reviews),
		"ttl":     c.ttl.String(),
	})
	return snap, nil
}

// Invalidate drops the snapshot. The next Get reloads from the store.
func (c *SnapshotCache) Invalidate() {
	c.genMu.Lock()
	c.gen++
	c.store.Delete(snapshotKey)
	c.genMu.Unlock()
	logger.Debug("Review snapshot invalidated")
}

func (c *SnapshotCache) generation() uint64 {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	return c.gen
}

// storeIfCurrent caches snap only if no Invalidate happened since gen was read.
func (c *SnapshotCache) storeIfCurrent(gen uint64, snap *Snapshot) bool {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if c.gen != gen {
		return false
	}
	c.store.Set(snapshotKey, snap, gocache.DefaultExpiration)
	return true
}

// FetchedAt reports when the current snapshot was loaded. ok is false when
// nothing is cached.
func (c *SnapshotCache) FetchedAt() (time.Time, bool) {
	snap, ok := c.cached()
	if !ok {
		return time.Time{}, false
	}
	return snap.FetchedAt, true
}

func (c *SnapshotCache) cached() (*Snapshot, bool) {
	v, found := c.store.Get(snapshotKey)
	if !found {
		return nil, false
	}
	snap, ok := v.(*Snapshot)
	return snap, ok
}
