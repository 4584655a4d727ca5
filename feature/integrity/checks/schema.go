package checks

import (
	"fmt"

	"membership-portal/core/database"

	"gorm.io/gorm"
)

// Table names a table and the columns the portal reads or writes.
type Table struct {
	Name    string
	Columns []string
}

// SchemaReport strictly types the result of a schema integrity check.
type SchemaReport struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"` // "ok", "error"
}

// CheckSchema verifies that every table carries its expected columns.
// Inspection failures are reported per table and do not abort the check.
func CheckSchema(db *gorm.DB, tables []Table) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Driver:  db.Dialector.Name(),
		Tables:  make(map[string]TableReport, len(tables)),
		Errors:  []string{},
		Matched: true,
	}

	for _, table := range tables {
		missing, err := database.MissingColumns(db, table.Name, table.Columns)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", table.Name, err))
			report.Tables[table.Name] = TableReport{MissingColumns: []string{}, Status: "error"}
			report.Matched = false
			continue
		}

		tbl := TableReport{MissingColumns: []string{}, Status: "ok"}
		if len(missing) > 0 {
			tbl.MissingColumns = missing
			tbl.Status = "error"
			report.Matched = false
		}
		report.Tables[table.Name] = tbl
	}

	return report, nil
}
