package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"PressWatch/internal/domain"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// The items table follows the partition/sort key design: (pk, sk) serves newest-first range scans,
// (group_id, item_id) makes upserts idempotent and answers "does the group have URL X".
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS items (
		pk           TEXT NOT NULL,
		sk           TEXT NOT NULL,
		group_id     TEXT NOT NULL,
		item_id      TEXT NOT NULL,
		source_id    TEXT NOT NULL,
		source_name  TEXT NOT NULL,
		title        TEXT NOT NULL,
		url          TEXT NOT NULL,
		published_at TEXT NOT NULL,
		summary_text TEXT NOT NULL DEFAULT '',
		glossary     TEXT NOT NULL DEFAULT '[]',
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL,
		PRIMARY KEY (group_id, item_id)
	)`,
	`CREATE INDEX IF NOT EXISTS items_pk_sk ON items (pk, sk)`,
	`CREATE TABLE IF NOT EXISTS group_watermarks (
		group_id         TEXT PRIMARY KEY,
		last_notified_at TEXT,
		updated_at       TEXT NOT NULL
	)`,
}

// Open connects to driver/dsn and returns a repository using the matching placeholder dialect.
func Open(driver, dsn string) (*SQLRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database dsn: %w", domain.ErrMisconfigured)
	}

	var placeholder sq.PlaceholderFormat
	switch driver {
	case DriverPostgres:
		placeholder = sq.Dollar
	case DriverSQLite:
		placeholder = sq.Question
		dsn = sqliteDSN(dsn)
	default:
		return nil, fmt.Errorf("database driver %q: %w", driver, domain.ErrMisconfigured)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer keeps SQLite from returning SQLITE_BUSY under concurrent upserts.
		db.SetMaxOpenConns(1)
	}

	return NewSQLRepository(db, placeholder), nil
}

// sqliteDSN appends the WAL and busy-timeout options, keeping any query string already present.
func sqliteDSN(dsn string) string {
	const opts = "_journal_mode=WAL&_busy_timeout=5000"
	if strings.Contains(dsn, "?") {
		return dsn + "&" + opts
	}
	return dsn + "?" + opts
}

// Migrate creates the tables when missing.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}
