// Package storage persists the manual chart overrides in SQLite.
package storage

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// OpenDB connects to the SQLite database at path, creating its directory, and applies all
// pending migrations.
func OpenDB(path string) (*sqlx.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_journal=WAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %w", err)
	}

	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting dialect for migrations: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return db, nil
}
