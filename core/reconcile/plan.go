package reconcile

import (
	"context"
	"fmt"
	"strings"
)

// ReconcileWithPlan performs reconciliation and returns a plan with results and actions.
// It does NOT execute actions; use ApplyPlan for that.
func ReconcileWithPlan(ctx context.Context, spec *Spec, opts ReconcileOptions) (*ReconcilePlan, error) {
	cache, err := GetOrBuildCache(ctx, spec)
	if err != nil {
		return nil, err
	}

	results := reconcileFromCache(cache, spec.Adapter)
	summary, actions := buildPlanFromResults(results, cache, opts)

	return &ReconcilePlan{
		Results: results,
		Actions: actions,
		Summary: summary,
	}, nil
}

// ApplyPlan executes the actions in a reconcile plan and returns how many ran.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func ApplyPlan(ctx context.Context, spec *Spec, plan *ReconcilePlan, opts ReconcileOptions) (executed int, err error) {
	if !opts.Confirmed || opts.DryRun {
		return 0, nil
	}

	mutator, ok := spec.Adapter.(Mutator)
	if !ok {
		return 0, fmt.Errorf("adapter %s does not implement Mutator interface", spec.Adapter.Name())
	}

	var backfillRelational, writeLegacy []Action
	for _, action := range plan.Actions {
		switch action.Type {
		case ActionBackfillRelational:
			backfillRelational = append(backfillRelational, action)
		case ActionBackfillLegacy, ActionSyncLegacy:
			writeLegacy = append(writeLegacy, action)
		}
	}

	if len(backfillRelational) > 0 {
		if batcher, ok := mutator.(RelationalBatcher); ok {
			if err := batcher.BackfillRelationalBatch(ctx, backfillRelational); err != nil {
				return executed, fmt.Errorf("failed to batch backfill relational records: %w", err)
			}
			executed += len(backfillRelational)
		} else {
			for _, action := range backfillRelational {
				if err := mutator.BackfillRelational(ctx, action.Key, action.Source); err != nil {
					return executed, fmt.Errorf("failed to backfill relational record %s: %w", action.Key, err)
				}
				executed++
			}
		}
	}

	for _, action := range writeLegacy {
		if err := mutator.WriteLegacy(ctx, action.Key, action.Source); err != nil {
			return executed, fmt.Errorf("failed to write legacy document %s: %w", action.Key, err)
		}
		executed++
	}

	if executed > 0 {
		InvalidateCache(spec)
	}
	return executed, nil
}

// ReconcileAndApply plans and, when confirmed, applies the plan.
func ReconcileAndApply(ctx context.Context, spec *Spec, opts ReconcileOptions) (*ReconcilePlan, int, error) {
	plan, err := ReconcileWithPlan(ctx, spec, opts)
	if err != nil {
		return nil, 0, err
	}

	executed, err := ApplyPlan(ctx, spec, plan, opts)
	return plan, executed, err
}

// buildPlanFromResults generates a summary and action plan from reconciliation results.
func buildPlanFromResults(results []ReconcileResult, cache *ReconcileCache, opts ReconcileOptions) (PlanSummary, []Action) {
	var summary PlanSummary
	var actions []Action

	summary.TotalItems = len(results)

	for _, result := range results {
		switch {
		case result.LegacyPresent && !result.RelationalPresent:
			summary.MissingRelational++
			if opts.DoBackfill {
				actions = append(actions, Action{
					Type:   ActionBackfillRelational,
					Key:    result.ID,
					Reason: "missing in: relational",
					Source: cache.LegacyIndex[result.ID],
				})
				summary.BackfillActions++
			}

		case result.RelationalPresent && !result.LegacyPresent:
			summary.MissingLegacy++
			if opts.DoBackfill {
				actions = append(actions, Action{
					Type:   ActionBackfillLegacy,
					Key:    result.ID,
					Reason: "missing in: legacy",
					Source: cache.RelationalIndex[result.ID],
				})
				summary.BackfillActions++
			}

		case len(result.Mismatch) > 0:
			summary.Mismatches++
			if opts.DoSync {
				actions = append(actions, Action{
					Type:   ActionSyncLegacy,
					Key:    result.ID,
					Reason: "mismatch: " + strings.Join(result.Mismatch, "; "),
					Source: cache.RelationalIndex[result.ID],
				})
				summary.SyncActions++
			}
		}
	}

	return summary, actions
}
