// Package legacy adapts the document store the portal is migrating away from.
//
// Each user is one Redis hash keyed "<prefix><id>" holding the fields name,
// email, role, photoUrl, createdAt and updatedAt. Writes are merges: only the
// fields set on the Document are written, every other field keeps its value.
//
// The relational store is authoritative. This store is read as a fallback when
// the relational record is missing and written as a mirror; the reconcile
// profiles command repairs drift between the two.
package legacy
