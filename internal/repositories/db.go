package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS kv_store (
		user_id    TEXT   NOT NULL,
		item_key   TEXT   NOT NULL,
		value      TEXT   NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (user_id, item_key)
	)`,
	`CREATE TABLE IF NOT EXISTS analytics_entries (
		id         TEXT   PRIMARY KEY,
		user_id    TEXT   NOT NULL,
		created_at BIGINT NOT NULL,
		payload    TEXT   NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_entries_user_idx ON analytics_entries (user_id, created_at)`,
}

// Open connects to the configured database. SQLite is limited to a single
// connection so in-memory databases are shared by every query.
func Open(driver, dsn string) (*sqlx.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
