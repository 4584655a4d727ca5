// Package reconcile compares the authoritative relational profile store with
// the legacy document store it mirrors and repairs divergence between them.
//
// Writes go to the relational store first and are then mirrored to the legacy
// store. A mirror write can fail after the relational write committed, and
// records created before the migration exist only in the legacy store. This
// package finds both cases.
//
// # Architecture
//
// 1. Engine: builds a union of keys from both stores, detects presence and
// absence, and identifies field mismatches.
//
// 2. Adapter: model-specific implementation that loads each store's index and
// compares fields. Adapters that also implement Mutator can apply plans.
//
// 3. Cache: TTL-based index cache with stampede protection for repeated
// targeted lookups.
//
// # Actions
//
//   - backfill_relational: the record exists only in the legacy store.
//   - backfill_legacy: the record exists only in the relational store.
//   - sync_legacy: both exist but differ; the relational record wins.
//
// # Usage Example
//
//	spec := &reconcile.Spec{Adapter: profile.NewBackfillAdapter(store, mirror)}
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, reconcile.ReconcileOptions{DoBackfill: true})
//	executed, err := reconcile.ApplyPlan(ctx, spec, plan, reconcile.ReconcileOptions{DoBackfill: true, Confirmed: true})
package reconcile
