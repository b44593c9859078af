package client

import (
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/plan"
	"github.com/pgschema/sqlschema/ir"
)

// Re-export important types for external consumption

// Plan is a migration plan with its rendered statements.
type Plan = plan.Plan

// Migration is the ordered list of operations between two schemas.
type Migration = diff.Migration

// Operation is one step of a migration.
type Operation = diff.Operation

// Options configures Migrate.
type Options = diff.Options

// Hazard is a destructive change found by Migrate.
type Hazard = diff.Hazard

// Dialect selects the SQL dialect statements are rendered in.
type Dialect = ir.Dialect

// Schema is a set of tables.
type Schema = ir.Schema

// Table represents a database table with its columns and indexes.
type Table = ir.Table

// Column represents a table column.
type Column = ir.Column

// Index represents a database index.
type Index = ir.Index

const (
	Postgres = ir.Postgres
	MySQL    = ir.MySQL
	SQLite   = ir.SQLite
)

// ErrDestructiveChange is matched by the error Migrate returns when it would
// drop a table or column without Options.AllowDestructive.
var ErrDestructiveChange = diff.ErrDestructiveChange
