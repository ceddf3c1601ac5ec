// Package catalog implements domain.Catalog over the application database.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite"

	"salesintel/internal/domain"
)

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ApplicationTables are created by Bootstrap for local and demo databases.
var ApplicationTables = []string{
	"users",
	"profiles",
	"subscriptions",
	"icp_profiles",
	"deals",
	"icp_generations",
	"market_reports",
	"activity_log",
}

// SQLiteCatalog lists tables of a SQLite database.
type SQLiteCatalog struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at dsn.
func Open(dsn string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog db: %w", err)
	}
	return &SQLiteCatalog{db: db}, nil
}

// New wraps an already open database.
func New(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

// DB exposes the underlying handle for stores sharing the database.
func (c *SQLiteCatalog) DB() *sql.DB { return c.db }

// Close closes the underlying database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

// Bootstrap creates empty application tables that do not exist yet.
func (c *SQLiteCatalog) Bootstrap(ctx context.Context) error {
	for _, t := range ApplicationTables {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			data       TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, t)
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap table %s: %w", t, err)
		}
	}
	return nil
}

// ListTables implements domain.Catalog. "public" and "" map to SQLite's
// main schema; any other name must be an attached database.
func (c *SQLiteCatalog) ListTables(ctx context.Context, schema string) ([]string, error) {
	if schema == "" || schema == "public" {
		schema = "main"
	}
	if !schemaName.MatchString(schema) {
		return nil, domain.NewSubSystemError("catalog", "SQLiteCatalog.ListTables", domain.ErrInvalidInput,
			fmt.Sprintf("schema %q", schema))
	}

	query := fmt.Sprintf(
		"SELECT name FROM %s.sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%%' ORDER BY name", schema)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalog, err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCatalog, err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalog, err)
	}
	return tables, nil
}
