// Package portal exposes the member session over HTTP.
//
// Every successful login creates a client instance: an identity provider, a
// session reconciler and a profile editor bound together. Instances are kept
// in a registry keyed by the issued token and torn down on logout. A request
// carrying a valid token for which no instance exists (for example after a
// restart) restores one from the token.
//
// # HTTP Endpoints
//
//   - POST /auth/login : Signs in and returns a token and the session.
//   - POST /auth/logout : Signs out and drops the client instance.
//   - GET /me : Returns the live session.
//   - PUT /profile : Saves a profile edit (multipart: name, optional photo).
package portal
