package reconcile

import "time"

// ReconcileResult represents the reconciliation output for a single record.
type ReconcileResult struct {
	// ID is the record id shared by both stores.
	ID string `json:"id"`

	// Name is the display name of the record.
	Name string `json:"name"`

	// RelationalPresent indicates whether the record exists in the relational store.
	RelationalPresent bool `json:"relational_present"`

	// LegacyPresent indicates whether the record exists in the legacy store.
	LegacyPresent bool `json:"legacy_present"`

	// Mismatch describes field differences, e.g. "name: relational=Ann legacy=Anne".
	Mismatch []string `json:"mismatch"`

	// Metadata contains model-specific data (e.g., email, role).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Spec defines the configuration for a reconciliation operation.
type Spec struct {
	// Adapter provides model-specific reconciliation logic.
	Adapter Adapter

	// CacheTTL is the time-to-live for cached indices. Zero disables caching.
	CacheTTL time.Duration
}

// CacheKey returns a unique key for caching based on spec parameters.
func (s *Spec) CacheKey() string {
	return s.Adapter.Name()
}

// Item is a record as loaded from one store. Adapters define the concrete type.
type Item any

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionBackfillRelational copies a legacy-only record into the relational store.
	ActionBackfillRelational ActionType = "backfill_relational"
	// ActionBackfillLegacy copies a relational-only record into the legacy store.
	ActionBackfillLegacy ActionType = "backfill_legacy"
	// ActionSyncLegacy overwrites differing legacy fields from the relational record.
	ActionSyncLegacy ActionType = "sync_legacy"
)

// Action represents a planned mutation operation.
type Action struct {
	// Type specifies the action to perform.
	Type ActionType `json:"type"`

	// Key is the record id.
	Key string `json:"key"`

	// Reason explains why this action is needed.
	Reason string `json:"reason"`

	// Source is the record copied by the action: the legacy item for
	// ActionBackfillRelational, the relational item otherwise.
	Source Item `json:"-"`
}

// ReconcilePlan contains reconciliation results and planned actions.
type ReconcilePlan struct {
	Results []ReconcileResult `json:"results"`
	Actions []Action          `json:"actions"`
	Summary PlanSummary       `json:"summary"`
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// TotalItems is the total number of unique records.
	TotalItems int `json:"total_items"`

	// MissingRelational counts records present only in the legacy store.
	MissingRelational int `json:"missing_relational"`

	// MissingLegacy counts records present only in the relational store.
	MissingLegacy int `json:"missing_legacy"`

	// Mismatches counts records with field discrepancies.
	Mismatches int `json:"mismatches"`

	// BackfillActions counts planned backfill actions.
	BackfillActions int `json:"backfill_actions"`

	// SyncActions counts planned sync actions.
	SyncActions int `json:"sync_actions"`
}

// ReconcileOptions controls which repairs are planned and whether they run.
type ReconcileOptions struct {
	// DryRun prevents execution of any mutations if true.
	DryRun bool

	// DoBackfill plans copying records missing from one store.
	DoBackfill bool

	// DoSync plans overwriting mismatched legacy fields from the relational store.
	DoSync bool

	// Confirmed indicates the operator confirmed the mutations.
	// If false, mutations will not execute regardless of DryRun.
	Confirmed bool
}
