// Package session keeps the single in-memory Session of a client instance
// consistent with the identity provider and the profile stores.
//
// # State machine
//
//	Loading --signed in--> Loading --profile found--> Authenticated
//	                               --no profile----> Unresolved
//	        --signed out-> Anonymous
//
// Every identity transition re-enters Loading. Transitions are queued and
// handled one at a time by the goroutine started with Start; when several are
// queued, only the latest identity transition is resolved. The Session is also
// written directly by UpdateProfile, so whichever write lands last wins.
//
// # Resolution
//
// A signed-in identity is resolved against the relational store first and the
// legacy document store second. Transient relational failures are not retried
// before falling back; they are logged at warn level.
package session
