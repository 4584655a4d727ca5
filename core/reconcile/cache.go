package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// ReconcileCache holds pre-built indices for fast targeted reconciliation.
type ReconcileCache struct {
	// RelationalIndex maps id to relational record.
	RelationalIndex map[string]Item

	// LegacyIndex maps id to legacy document.
	LegacyIndex map[string]Item

	// Built is the timestamp when this cache was built.
	Built time.Time

	// TTL is the time-to-live for this cache.
	TTL time.Duration
}

// IsExpired returns true if this cache has expired based on its TTL.
func (c *ReconcileCache) IsExpired() bool {
	if c.TTL == 0 {
		return true
	}
	return time.Since(c.Built) > c.TTL
}

// cacheStore holds all reconcile caches keyed by spec cache key.
type cacheStore struct {
	mu     sync.RWMutex
	caches map[string]*ReconcileCache
	sf     singleflight.Group
}

var globalCacheStore = &cacheStore{
	caches: make(map[string]*ReconcileCache),
}

// BuildCache loads both indices concurrently. It does NOT store the cache; use
// GetOrBuildCache for that.
func BuildCache(ctx context.Context, spec *Spec) (*ReconcileCache, error) {
	var relational, legacy map[string]Item

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, err := spec.Adapter.LoadRelationalIndex(gctx)
		if err != nil {
			return fmt.Errorf("load relational index: %w", err)
		}
		relational = idx
		return nil
	})
	g.Go(func() error {
		idx, err := spec.Adapter.LoadLegacyIndex(gctx)
		if err != nil {
			return fmt.Errorf("load legacy index: %w", err)
		}
		legacy = idx
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &ReconcileCache{
		RelationalIndex: relational,
		LegacyIndex:     legacy,
		Built:           time.Now(),
		TTL:             spec.CacheTTL,
	}, nil
}

// GetOrBuildCache returns the cached indices for spec, rebuilding them when
// missing or expired. Concurrent builds for the same spec are collapsed.
func GetOrBuildCache(ctx context.Context, spec *Spec) (*ReconcileCache, error) {
	cacheKey := spec.CacheKey()

	globalCacheStore.mu.RLock()
	cache, exists := globalCacheStore.caches[cacheKey]
	globalCacheStore.mu.RUnlock()

	if exists && !cache.IsExpired() {
		return cache, nil
	}

	result, err, _ := globalCacheStore.sf.Do(cacheKey, func() (interface{}, error) {
		globalCacheStore.mu.RLock()
		cache, exists := globalCacheStore.caches[cacheKey]
		globalCacheStore.mu.RUnlock()

		if exists && !cache.IsExpired() {
			return cache, nil
		}

		newCache, err := BuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}

		globalCacheStore.mu.Lock()
		globalCacheStore.caches[cacheKey] = newCache
		globalCacheStore.mu.Unlock()

		return newCache, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*ReconcileCache), nil
}

// InvalidateCache removes the cache for the given spec from the store.
func InvalidateCache(spec *Spec) {
	cacheKey := spec.CacheKey()
	globalCacheStore.mu.Lock()
	delete(globalCacheStore.caches, cacheKey)
	globalCacheStore.mu.Unlock()
}
