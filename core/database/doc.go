// Package database handles relational store connections and schema inspection.
//
// It wraps GORM and selects the dialect from configuration: MySQL for deployments
// and SQLite for local development and tests (":memory:" works with a single
// pooled connection).
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns back the schema integrity check, which
// verifies that the users, credentials and announcements tables carry the
// columns the portal reads and writes.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "users", []string{"id", "email"})
package database
