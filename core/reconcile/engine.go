package reconcile

import (
	"context"
	"sort"
)

// ReconcileAll performs a full reconciliation across all records, sorted by id.
func ReconcileAll(ctx context.Context, spec *Spec) ([]ReconcileResult, error) {
	cache, err := BuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}
	return reconcileFromCache(cache, spec.Adapter), nil
}

// ReconcileOne reconciles a single record. It uses cached indices when caching
// is enabled and point lookups otherwise.
func ReconcileOne(ctx context.Context, spec *Spec, id string) (*ReconcileResult, error) {
	if spec.CacheTTL > 0 {
		cache, err := GetOrBuildCache(ctx, spec)
		if err != nil {
			return nil, err
		}
		result := buildResult(id, cache.RelationalIndex, cache.LegacyIndex, spec.Adapter)
		return &result, nil
	}

	rel, err := spec.Adapter.QueryRelational(ctx, id)
	if err != nil {
		return nil, err
	}
	leg, err := spec.Adapter.QueryLegacy(ctx, id)
	if err != nil {
		return nil, err
	}

	relIndex := map[string]Item{}
	if rel != nil {
		relIndex[id] = rel
	}
	legIndex := map[string]Item{}
	if leg != nil {
		legIndex[id] = leg
	}
	result := buildResult(id, relIndex, legIndex, spec.Adapter)
	return &result, nil
}

func reconcileFromCache(cache *ReconcileCache, adapter Adapter) []ReconcileResult {
	union := buildUnion(cache.RelationalIndex, cache.LegacyIndex)

	results := make([]ReconcileResult, 0, len(union))
	for key := range union {
		results = append(results, buildResult(key, cache.RelationalIndex, cache.LegacyIndex, adapter))
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].ID < results[j].ID
	})
	return results
}

// buildUnion creates the union of keys of both indices.
func buildUnion(relational, legacy map[string]Item) map[string]struct{} {
	union := make(map[string]struct{}, len(relational))
	for key := range relational {
		union[key] = struct{}{}
	}
	for key := range legacy {
		union[key] = struct{}{}
	}
	return union
}

// buildResult creates a ReconcileResult for a single key.
func buildResult(key string, relational, legacy map[string]Item, adapter Adapter) ReconcileResult {
	rel, relPresent := relational[key]
	leg, legPresent := legacy[key]

	result := ReconcileResult{
		ID:                key,
		RelationalPresent: relPresent,
		LegacyPresent:     legPresent,
		Mismatch:          []string{},
	}

	if relPresent || legPresent {
		result.Name = adapter.ResolveName(rel, leg)
		result.Metadata = adapter.GetMetadata(rel, leg)
	}

	if relPresent && legPresent {
		result.Mismatch = adapter.CompareFields(rel, leg)
	}

	return result
}
