// Package identity is the identity provider adapter.
//
// A Provider signs a client in and out and notifies listeners of every
// auth-state transition with either the signed-in Identity or nil. Listeners
// registered with OnAuthStateChange are called immediately with the current
// state, then once per transition, in registration order.
//
// LocalProvider is the in-process implementation: credentials live in the
// credentials table as bcrypt hashes (Directory) and a successful sign-in is
// represented by an HS256 JWT (Tokens) that can later be handed back to Restore
// to rebuild the signed-in state after a reload.
package identity
