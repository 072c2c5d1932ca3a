// Package db persists flattened case tables and their daily aggregates in a
// local sqlite database, giving an analyst a queryable workbench across
// extraction runs. It is storage only: loading source artifacts never goes
// through it.
package db

import (
	"database/sql"
	_ "embed"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations.sql
var migrationsSQL string

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
