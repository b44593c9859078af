// Package inspect reads the current schema of a live database. Each inspector
// collects flat catalog rows for one namespace and assembles them into an
// ir.Schema.
package inspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgschema/sqlschema/ir"
)

// Inspector reads the tables of one namespace.
type Inspector interface {
	Schema(ctx context.Context, namespace string) (ir.Schema, error)
}

var (
	_ Inspector = (*PostgresInspector)(nil)
	_ Inspector = (*SQLiteInspector)(nil)
	_ Inspector = (*MySQLInspector)(nil)
)

// queryEach runs a query and calls scan for every row. The rows are closed
// before it returns so callers may issue further queries on a single connection.
func queryEach(ctx context.Context, db *sql.DB, scan func(*sql.Rows) error, q string, args ...any) error {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}
	}
	return rows.Err()
}
