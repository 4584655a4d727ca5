// Package profile stores user profile records and profile photos.
//
// GormStore is the relational, authoritative store: one row per user in the
// users table, upserted with merge semantics so email, role and created_at keep
// the values they were first persisted with. Photos go to object storage under a
// key derived from the owner id, so a new upload replaces the previous one.
//
// Repository layers the legacy document store on top as a write-through
// mirror. A failed mirror write is reported as a *MirrorError instead of being
// dropped; the reconcile profiles command backfills the divergence.
package profile
