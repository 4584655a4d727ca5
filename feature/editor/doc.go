// Package editor implements the profile edit workflow: validate the edit,
// upload the photo, persist the relational record, then refresh the live
// session. Saves are serialized per editor; a concurrent save is rejected.
package editor
