package reconcile

import "context"

// Adapter defines model-specific reconciliation logic.
type Adapter interface {
	// Name returns the unique name of this adapter (e.g., "profiles").
	Name() string

	// LoadRelationalIndex loads every relational record indexed by id.
	LoadRelationalIndex(ctx context.Context) (map[string]Item, error)

	// LoadLegacyIndex loads every legacy document indexed by id.
	LoadLegacyIndex(ctx context.Context) (map[string]Item, error)

	// QueryRelational returns the relational record for id, or nil.
	QueryRelational(ctx context.Context, id string) (Item, error)

	// QueryLegacy returns the legacy document for id, or nil.
	QueryLegacy(ctx context.Context, id string) (Item, error)

	// ResolveName returns the display name given either item; either may be nil.
	ResolveName(relational, legacy Item) string

	// CompareFields lists mismatches between two present items. Each entry names
	// the field and both values (e.g., "role: relational=EB legacy=Member").
	CompareFields(relational, legacy Item) []string

	// GetMetadata returns model-specific metadata for the record.
	GetMetadata(relational, legacy Item) map[string]string
}

// Mutator applies planned actions.
type Mutator interface {
	// BackfillRelational inserts the legacy item as a relational record.
	BackfillRelational(ctx context.Context, key string, legacy Item) error

	// WriteLegacy writes the relational item over the legacy document.
	WriteLegacy(ctx context.Context, key string, relational Item) error
}

// RelationalBatcher is implemented by mutators that can backfill many
// relational records in one statement.
type RelationalBatcher interface {
	BackfillRelationalBatch(ctx context.Context, actions []Action) error
}
