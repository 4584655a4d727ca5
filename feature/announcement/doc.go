// Package announcement serves the read-only announcement board.
//
// Announcements are created and removed by an external tool; this package
// only lists them (High priority first, then newest) and fetches one by id.
//
// # HTTP Endpoints
//
//   - GET /announcements : Lists announcements.
//   - GET /announcements/:id : Returns a single announcement.
package announcement
