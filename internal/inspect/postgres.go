package inspect

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

//go:embed queries/*.sql
var queries embed.FS

func query(name string) string {
	data, err := queries.ReadFile("queries/" + name + ".sql")
	if err != nil {
		panic(fmt.Sprintf("missing embedded query %s: %v", name, err))
	}
	return string(data)
}

// PostgresInspector reads schemas from a PostgreSQL database.
type PostgresInspector struct {
	pool *pgxpool.Pool
}

func NewPostgresInspector(pool *pgxpool.Pool) *PostgresInspector {
	return &PostgresInspector{pool: pool}
}

// Schema reads every table of the namespace.
func (i *PostgresInspector) Schema(ctx context.Context, namespace string) (ir.Schema, error) {
	catalog, err := i.Catalog(ctx, namespace)
	if err != nil {
		return ir.Schema{}, err
	}
	return catalog.Assemble(ir.Postgres)
}

// Catalog runs the catalog queries for the namespace concurrently.
func (i *PostgresInspector) Catalog(ctx context.Context, namespace string) (Catalog, error) {
	if err := i.validateSchemaExists(ctx, namespace); err != nil {
		return Catalog{}, err
	}

	catalog := Catalog{Namespace: namespace}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		catalog.Tables, err = collect[TableRow](ctx, i.pool, "tables", namespace)
		return err
	})
	eg.Go(func() (err error) {
		catalog.Columns, err = collect[ColumnRow](ctx, i.pool, "columns", namespace)
		return err
	})
	eg.Go(func() (err error) {
		catalog.ForeignKeys, err = collect[ForeignKeyRow](ctx, i.pool, "foreign_keys", namespace)
		return err
	})
	eg.Go(func() (err error) {
		catalog.Checks, err = collect[CheckRow](ctx, i.pool, "checks", namespace)
		return err
	})
	eg.Go(func() (err error) {
		catalog.Indexes, err = collect[IndexRow](ctx, i.pool, "indexes", namespace)
		return err
	})
	if err := eg.Wait(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

// Routines lists the functions and procedures of the namespace.
func (i *PostgresInspector) Routines(ctx context.Context, namespace string) ([]Routine, error) {
	return collect[Routine](ctx, i.pool, "routines", namespace)
}

// Triggers lists the triggers of the namespace, one entry per event.
func (i *PostgresInspector) Triggers(ctx context.Context, namespace string) ([]Trigger, error) {
	return collect[Trigger](ctx, i.pool, "triggers", namespace)
}

func (i *PostgresInspector) validateSchemaExists(ctx context.Context, namespace string) error {
	var exists bool
	if err := i.pool.QueryRow(ctx, query("schema_exists"), namespace).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if schema '%s' exists: %w", namespace, err)
	}
	if !exists {
		return fmt.Errorf("schema '%s' does not exist in the database", namespace)
	}
	return nil
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, name, namespace string) ([]T, error) {
	rows, err := pool.Query(ctx, query(name), namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[T])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	logger.Get().Debug("Read catalog rows", "query", name, "namespace", namespace, "rows", len(result))
	return result, nil
}
