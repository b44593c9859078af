package inspect

import (
	"fmt"
	"strings"

	"github.com/pgschema/sqlschema/internal/normalize"
	"github.com/pgschema/sqlschema/ir"
)

// TableRow names a table in the inspected namespace.
type TableRow struct {
	Schema string `db:"table_schema" json:"schema"`
	Name   string `db:"table_name" json:"name"`
}

// ColumnRow is one column as reported by the catalog, in ordinal order.
type ColumnRow struct {
	Schema               string  `db:"table_schema"`
	Table                string  `db:"table_name"`
	Name                 string  `db:"column_name"`
	Ordinal              int32   `db:"ordinal_position"`
	IsNullable           string  `db:"is_nullable"`
	DataType             string  `db:"data_type"`
	NumericPrecision     *int32  `db:"numeric_precision"`
	NumericScale         *int32  `db:"numeric_scale"`
	InnerType            *string `db:"inner_type"`
	PrimaryKey           bool    `db:"primary_key"`
	Default              *string `db:"column_default"`
	GenerationTime       *string `db:"generation_time"`
	GenerationExpression *string `db:"generation_expression"`
	IsIdentity           bool    `db:"is_identity"`
}

// ForeignKeyRow is one column of a foreign key constraint.
type ForeignKeyRow struct {
	Schema        string `db:"table_schema"`
	Table         string `db:"table_name"`
	Name          string `db:"constraint_name"`
	Column        string `db:"column_name"`
	ForeignSchema string `db:"foreign_table_schema"`
	ForeignTable  string `db:"foreign_table_name"`
	ForeignColumn string `db:"foreign_column_name"`
	OnDelete      string `db:"delete_rule"`
	OnUpdate      string `db:"update_rule"`
}

// CheckRow is a check constraint whose expression mentions a single column.
type CheckRow struct {
	Schema     string `db:"table_schema"`
	Table      string `db:"table_name"`
	Name       string `db:"constraint_name"`
	Column     string `db:"column_name"`
	Expression string `db:"check_expression"`
}

// IndexRow is an index with its key columns in order. Constraint is set for
// indexes that back a UNIQUE constraint.
type IndexRow struct {
	Schema     string   `db:"table_schema"`
	Table      string   `db:"table_name"`
	Name       string   `db:"index_name"`
	Unique     bool     `db:"is_unique"`
	Kind       string   `db:"index_kind"`
	Columns    []string `db:"column_names"`
	Constraint bool     `db:"is_constraint"`
}

// Routine is a function or procedure. Routines are reported for information;
// the engine does not diff them.
type Routine struct {
	Schema     string  `db:"routine_schema" json:"schema" yaml:"schema"`
	Name       string  `db:"routine_name" json:"name" yaml:"name"`
	Type       string  `db:"routine_type" json:"type" yaml:"type"`
	ReturnType *string `db:"data_type" json:"return_type,omitempty" yaml:"return_type,omitempty"`
	Definition *string `db:"routine_definition" json:"definition,omitempty" yaml:"definition,omitempty"`
}

// Trigger is one event of a trigger. Triggers are reported for information only.
type Trigger struct {
	Schema    string `db:"trigger_schema" json:"schema" yaml:"schema"`
	Name      string `db:"trigger_name" json:"name" yaml:"name"`
	Event     string `db:"event_manipulation" json:"event" yaml:"event"`
	Table     string `db:"event_object_table" json:"table" yaml:"table"`
	Timing    string `db:"action_timing" json:"timing" yaml:"timing"`
	Statement string `db:"action_statement" json:"statement" yaml:"statement"`
}

// Column converts the row into a column of the model.
func (r ColumnRow) Column(d ir.Dialect) (ir.Column, error) {
	typ, err := r.columnType(d)
	if err != nil {
		return ir.Column{}, fmt.Errorf("column %s.%s: %w", r.Table, r.Name, err)
	}

	c := ir.Column{
		Name:       r.Name,
		Type:       typ,
		Nullable:   strings.EqualFold(r.IsNullable, "YES"),
		PrimaryKey: r.PrimaryKey,
		Generated:  r.generated(d),
	}
	if c.Generated == nil && r.Default != nil {
		c.Default = defaultExpr(d, *r.Default)
	}
	if c.PrimaryKey || c.Generated.IsIdentity() {
		c.Nullable = false
	}
	return c, nil
}

func (r ColumnRow) columnType(d ir.Dialect) (ir.Type, error) {
	switch strings.ToUpper(r.DataType) {
	case "ARRAY":
		if r.InnerType == nil {
			return ir.Type{}, &ir.ParseError{Dialect: d, Input: r.DataType, Reason: "array without element type"}
		}
		inner, err := ir.ParseType(d, *r.InnerType)
		if err != nil {
			return ir.Type{}, err
		}
		return ir.Array(inner), nil
	case "NUMERIC", "DECIMAL":
		if r.NumericPrecision != nil && r.NumericScale != nil {
			return ir.Numeric(uint8(*r.NumericPrecision), uint8(*r.NumericScale)), nil
		}
	case "USER-DEFINED":
		if r.InnerType != nil {
			return ir.Other(*r.InnerType), nil
		}
	}
	return ir.ParseType(d, r.DataType)
}

// generated interprets the generation columns: identity columns become
// Identity, anything else with an expression becomes a stored column.
func (r ColumnRow) generated(d ir.Dialect) *ir.Generated {
	if r.GenerationTime == nil {
		return nil
	}
	when := ir.Always
	if strings.EqualFold(strings.TrimSpace(*r.GenerationTime), "BY DEFAULT") {
		when = ir.ByDefault
	}
	if r.IsIdentity {
		return ir.Identity(when)
	}
	if r.GenerationExpression == nil || strings.TrimSpace(*r.GenerationExpression) == "" {
		return nil
	}
	expr := strings.TrimSpace(*r.GenerationExpression)
	if d == ir.Postgres {
		expr = normalize.Expr(expr)
	}
	return ir.Stored(ir.Raw(expr))
}

func defaultExpr(d ir.Dialect, value string) ir.Expr {
	if d == ir.Postgres {
		return normalize.Default(value)
	}
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, "NULL") {
		return ir.NullLit{}
	}
	return ir.Raw(value)
}
