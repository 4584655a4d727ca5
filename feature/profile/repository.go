package profile

import (
	"context"
	"errors"
	"sync/atomic"

	"membership-portal/feature/legacy"

	"go.uber.org/zap"
)

// Repository writes profiles to the authoritative store and mirrors them to the
// legacy document store.
type Repository struct {
	store          Store
	mirror         legacy.Store
	logger         *zap.Logger
	mirrorFailures atomic.Int64
}

// NewRepository creates a Repository.
func NewRepository(store Store, mirror legacy.Store, logger *zap.Logger) *Repository {
	return &Repository{store: store, mirror: mirror, logger: logger}
}

// Store returns the authoritative store.
func (r *Repository) Store() Store {
	return r.store
}

// Legacy returns the mirror store.
func (r *Repository) Legacy() legacy.Store {
	return r.mirror
}

// Fetch returns the authoritative record for id.
func (r *Repository) Fetch(ctx context.Context, id string) (*Record, error) {
	return r.store.FetchProfile(ctx, id)
}

// FetchLegacy returns the mirror document for id.
func (r *Repository) FetchLegacy(ctx context.Context, id string) (*legacy.Document, error) {
	return r.mirror.Get(ctx, id)
}

// Save upserts rec and then mirrors it. A failed upsert returns a *StoreError and
// skips the mirror; a failed mirror returns a *MirrorError after the upsert has
// been committed.
func (r *Repository) Save(ctx context.Context, rec Record) error {
	if err := r.store.UpsertProfile(ctx, rec); err != nil {
		return err
	}
	return r.Mirror(ctx, rec.ID, ToDocument(rec))
}

// Mirror merges doc onto the legacy document for id.
func (r *Repository) Mirror(ctx context.Context, id string, doc legacy.Document) error {
	if err := r.mirror.Merge(ctx, id, doc); err != nil {
		n := r.mirrorFailures.Add(1)
		r.logger.Warn("Legacy mirror write failed; profile stores diverge until backfill",
			zap.String("id", id),
			zap.Int64("mirror_failures", n),
			zap.Error(err),
		)
		return &MirrorError{ID: id, Err: err}
	}
	return nil
}

// MirrorFailures returns how many mirror writes have failed since start.
func (r *Repository) MirrorFailures() int64 {
	return r.mirrorFailures.Load()
}

// ToDocument converts a record into its legacy representation.
func ToDocument(rec Record) legacy.Document {
	doc := legacy.Document{
		Name:      rec.Name,
		Email:     rec.Email,
		Role:      string(rec.Role),
		PhotoURL:  rec.Photo(),
		CreatedAt: rec.CreatedAt,
	}
	if rec.UpdatedAt != nil {
		doc.UpdatedAt = *rec.UpdatedAt
	}
	return doc
}

// FromDocument converts a legacy document for id into a record.
func FromDocument(id string, doc legacy.Document) Record {
	rec := Record{
		ID:        id,
		Email:     doc.Email,
		Name:      doc.Name,
		Role:      Role(doc.Role),
		CreatedAt: doc.CreatedAt,
	}
	if doc.PhotoURL != "" {
		photo := doc.PhotoURL
		rec.PhotoURL = &photo
	}
	if !doc.UpdatedAt.IsZero() {
		updated := doc.UpdatedAt
		rec.UpdatedAt = &updated
	}
	return rec
}

// IsMirrorOnly reports whether err only reflects a failed mirror write.
func IsMirrorOnly(err error) bool {
	var mirrorErr *MirrorError
	return errors.As(err, &mirrorErr)
}
