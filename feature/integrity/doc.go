// Package integrity provides infrastructure health checks for the portal.
//
// # Checks Provided
//
//   - Storage: Checks that the profile photo bucket exists, optionally creating it.
//   - Schema: Validates that the users, credentials and announcements tables carry the columns the portal uses.
//   - Legacy: Pings the legacy document store and reports its key count.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/storage : Runs storage check (supports ?fix=true).
//   - GET /integrity/schema : Runs schema check.
//   - GET /integrity/legacy : Runs legacy store check.
package integrity
