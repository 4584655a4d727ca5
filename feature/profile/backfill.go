package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership-portal/core/reconcile"
	"membership-portal/feature/legacy"

	"golang.org/x/sync/errgroup"
)

// legacyLoadConcurrency bounds concurrent legacy reads while building the index.
const legacyLoadConcurrency = 16

// BackfillAdapter reconciles the users table with the legacy document store.
type BackfillAdapter struct {
	store  *GormStore
	mirror legacy.Store
	now    func() time.Time
}

// NewBackfillAdapter creates an adapter over the relational store and its mirror.
func NewBackfillAdapter(store *GormStore, mirror legacy.Store) *BackfillAdapter {
	return &BackfillAdapter{store: store, mirror: mirror, now: time.Now}
}

// Name returns the adapter name.
func (a *BackfillAdapter) Name() string {
	return "profiles"
}

// LoadRelationalIndex loads every users row.
func (a *BackfillAdapter) LoadRelationalIndex(ctx context.Context) (map[string]reconcile.Item, error) {
	recs, err := a.store.AllProfiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]reconcile.Item, len(recs))
	for _, rec := range recs {
		index[rec.ID] = rec
	}
	return index, nil
}

// LoadLegacyIndex loads every legacy document.
func (a *BackfillAdapter) LoadLegacyIndex(ctx context.Context) (map[string]reconcile.Item, error) {
	ids, err := a.mirror.IDs(ctx)
	if err != nil {
		return nil, err
	}

	docs := make([]*legacy.Document, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(legacyLoadConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			doc, err := a.mirror.Get(gctx, id)
			if errors.Is(err, legacy.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	index := make(map[string]reconcile.Item, len(ids))
	for i, doc := range docs {
		if doc != nil {
			index[ids[i]] = *doc
		}
	}
	return index, nil
}

// QueryRelational returns the users row for id, or nil.
func (a *BackfillAdapter) QueryRelational(ctx context.Context, id string) (reconcile.Item, error) {
	rec, err := a.store.FetchProfile(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return *rec, nil
}

// QueryLegacy returns the legacy document for id, or nil.
func (a *BackfillAdapter) QueryLegacy(ctx context.Context, id string) (reconcile.Item, error) {
	doc, err := a.mirror.Get(ctx, id)
	if errors.Is(err, legacy.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return *doc, nil
}

// ResolveName prefers the relational name.
func (a *BackfillAdapter) ResolveName(rel, leg reconcile.Item) string {
	if rec, ok := rel.(Record); ok && rec.Name != "" {
		return rec.Name
	}
	if doc, ok := leg.(legacy.Document); ok {
		return doc.Name
	}
	return ""
}

// CompareFields compares name, email, role and photo URL.
func (a *BackfillAdapter) CompareFields(rel, leg reconcile.Item) []string {
	rec := rel.(Record)
	doc := leg.(legacy.Document)

	var mismatches []string
	compare := func(field, r, l string) {
		if r != l {
			mismatches = append(mismatches, fmt.Sprintf("%s: relational=%q legacy=%q", field, r, l))
		}
	}
	compare("name", rec.Name, doc.Name)
	compare("email", rec.Email, doc.Email)
	compare("role", string(rec.Role), doc.Role)
	compare("photoUrl", rec.Photo(), doc.PhotoURL)
	return mismatches
}

// GetMetadata reports the email and role of the record.
func (a *BackfillAdapter) GetMetadata(rel, leg reconcile.Item) map[string]string {
	if rec, ok := rel.(Record); ok {
		return map[string]string{"email": rec.Email, "role": string(rec.Role)}
	}
	if doc, ok := leg.(legacy.Document); ok {
		return map[string]string{"email": doc.Email, "role": doc.Role}
	}
	return nil
}

// BackfillRelational inserts the legacy document as a users row.
func (a *BackfillAdapter) BackfillRelational(ctx context.Context, key string, item reconcile.Item) error {
	rec, err := a.recordFromLegacy(key, item)
	if err != nil {
		return err
	}
	return a.store.InsertMissing(ctx, []Record{rec})
}

// BackfillRelationalBatch inserts every legacy-only record in one statement,
// skipping records that appeared since the plan was built.
func (a *BackfillAdapter) BackfillRelationalBatch(ctx context.Context, actions []reconcile.Action) error {
	recs := make([]Record, 0, len(actions))
	for _, action := range actions {
		rec, err := a.recordFromLegacy(action.Key, action.Source)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
	}
	return a.store.InsertMissing(ctx, recs)
}

// WriteLegacy replaces the legacy document with the relational record.
func (a *BackfillAdapter) WriteLegacy(ctx context.Context, key string, item reconcile.Item) error {
	rec, ok := item.(Record)
	if !ok {
		return fmt.Errorf("write legacy %s: unexpected item %T", key, item)
	}
	return a.mirror.Replace(ctx, key, ToDocument(rec))
}

// recordFromLegacy converts a legacy document into an insertable record,
// filling the columns the users table requires.
func (a *BackfillAdapter) recordFromLegacy(key string, item reconcile.Item) (Record, error) {
	doc, ok := item.(legacy.Document)
	if !ok {
		return Record{}, fmt.Errorf("backfill relational %s: unexpected item %T", key, item)
	}
	rec := FromDocument(key, doc)
	if !rec.Role.Valid() {
		rec.Role = RoleMember
	}
	rec.Name = DisplayName(rec.Name, rec.Email)
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = a.now().UTC()
	}
	if rec.Email == "" {
		return Record{}, fmt.Errorf("backfill relational %s: legacy document has no email", key)
	}
	return rec, nil
}
