// Package server holds the HTTP server configuration.
//
// The start command owns the Fiber application; this package only defines the
// listen port, request body ceiling and read timeout, and the helpers that turn
// them into Fiber settings.
package server
