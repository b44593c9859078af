package ir

import (
	"strings"
)

// Constraint is a column constraint. Variants are ForeignKey, Unique, Check and PrimaryKey.
// WriteSQL renders the column-level form; ConstraintDef renders the table-level form.
type Constraint interface {
	ToSQL
	// Key identifies the constraint independently of its name. tableSchema
	// resolves references that omit a schema.
	Key(tableSchema string) string
	// ConstraintName returns the explicit name, or "" when the database picks one.
	ConstraintName() string
	isConstraint()
}

// ReferentialAction is an ON DELETE / ON UPDATE action. The zero value is NO ACTION.
type ReferentialAction string

const (
	NoAction   ReferentialAction = ""
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET NULL"
	SetDefault ReferentialAction = "SET DEFAULT"
	Restrict   ReferentialAction = "RESTRICT"
)

// ParseReferentialAction normalizes catalog spellings such as "NO ACTION" or "a".
func ParseReferentialAction(s string) ReferentialAction {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CASCADE", "C":
		return Cascade
	case "SET NULL", "N":
		return SetNull
	case "SET DEFAULT", "D":
		return SetDefault
	case "RESTRICT", "R":
		return Restrict
	default:
		return NoAction
	}
}

// ForeignKey references columns of another table.
type ForeignKey struct {
	Name     string
	Schema   string
	Table    string
	Columns  []string
	OnDelete ReferentialAction
	OnUpdate ReferentialAction
}

// Unique marks a column as unique.
type Unique struct {
	Name string
}

// Check restricts column values with a predicate.
type Check struct {
	Name string
	Expr Expr
}

// PrimaryKey is the table-level primary key. Columns declare it through their
// PrimaryKey flag; the engine uses this variant when the key changes.
type PrimaryKey struct {
	Name    string
	Columns []string
}

func (ForeignKey) isConstraint() {}
func (Unique) isConstraint()     {}
func (Check) isConstraint()      {}
func (PrimaryKey) isConstraint() {}

func (c ForeignKey) ConstraintName() string { return c.Name }
func (c Unique) ConstraintName() string     { return c.Name }
func (c Check) ConstraintName() string      { return c.Name }
func (c PrimaryKey) ConstraintName() string { return c.Name }

// ResolvedSchema returns the referenced schema, defaulting to the owning table's.
func (c ForeignKey) ResolvedSchema(tableSchema string) string {
	if c.Schema == "" {
		return tableSchema
	}
	return c.Schema
}

func (c ForeignKey) Key(tableSchema string) string {
	key := "fk:" + c.ResolvedSchema(tableSchema) + "." + c.Table + "(" + strings.Join(c.Columns, ",") + ")"
	if c.OnDelete != NoAction {
		key += " on delete " + string(c.OnDelete)
	}
	if c.OnUpdate != NoAction {
		key += " on update " + string(c.OnUpdate)
	}
	return key
}

func (Unique) Key(string) string { return "unique" }

func (c Check) Key(string) string {
	if c.Expr == nil {
		return "check:"
	}
	return "check:" + SQL(c.Expr, Postgres)
}

func (c PrimaryKey) Key(string) string {
	return "pk:" + strings.Join(c.Columns, ",")
}

func writeConstraintName(b *Buffer, d Dialect, name string) {
	if name == "" {
		return
	}
	b.WriteString("CONSTRAINT ")
	b.WriteIdent(d, name)
	b.WriteByte(' ')
}

func (c ForeignKey) writeReference(b *Buffer, d Dialect) {
	b.WriteString("REFERENCES ")
	b.WriteTableName(d, c.Schema, c.Table)
	b.WriteString(" (")
	b.WriteIdents(d, c.Columns, ", ")
	b.WriteByte(')')
	if c.OnDelete != NoAction {
		b.WriteString(" ON DELETE ")
		b.WriteString(string(c.OnDelete))
	}
	if c.OnUpdate != NoAction {
		b.WriteString(" ON UPDATE ")
		b.WriteString(string(c.OnUpdate))
	}
}

func (c ForeignKey) WriteSQL(b *Buffer, d Dialect) {
	writeConstraintName(b, d, c.Name)
	c.writeReference(b, d)
}

func (c Unique) WriteSQL(b *Buffer, d Dialect) {
	writeConstraintName(b, d, c.Name)
	b.WriteString("UNIQUE")
}

func (c Check) WriteSQL(b *Buffer, d Dialect) {
	writeConstraintName(b, d, c.Name)
	b.WriteString("CHECK (")
	if c.Expr != nil {
		c.Expr.WriteSQL(b, d)
	}
	b.WriteByte(')')
}

func (c PrimaryKey) WriteSQL(b *Buffer, d Dialect) {
	writeConstraintName(b, d, c.Name)
	b.WriteString("PRIMARY KEY")
}

// ConstraintDef is the table-level form of a constraint on the given columns,
// as used by CREATE TABLE and ALTER TABLE ... ADD CONSTRAINT.
type ConstraintDef struct {
	Name       string
	Columns    []string
	Constraint Constraint
}

// EffectiveName returns the explicit name, falling back to the constraint's own name.
func (c ConstraintDef) EffectiveName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Constraint.ConstraintName()
}

func (c ConstraintDef) WriteSQL(b *Buffer, d Dialect) {
	writeConstraintName(b, d, c.EffectiveName())
	switch con := c.Constraint.(type) {
	case ForeignKey:
		b.WriteString("FOREIGN KEY (")
		b.WriteIdents(d, c.Columns, ", ")
		b.WriteString(") ")
		con.writeReference(b, d)
	case Unique:
		b.WriteString("UNIQUE (")
		b.WriteIdents(d, c.Columns, ", ")
		b.WriteByte(')')
	case Check:
		b.WriteString("CHECK (")
		if con.Expr != nil {
			con.Expr.WriteSQL(b, d)
		}
		b.WriteByte(')')
	case PrimaryKey:
		cols := con.Columns
		if len(cols) == 0 {
			cols = c.Columns
		}
		b.WriteString("PRIMARY KEY (")
		b.WriteIdents(d, cols, ", ")
		b.WriteByte(')')
	default:
		panic("unknown constraint variant")
	}
}

// DefaultConstraintName returns the name PostgreSQL assigns to an unnamed constraint.
func DefaultConstraintName(table string, columns []string, c Constraint) string {
	cols := strings.Join(columns, "_")
	switch c.(type) {
	case ForeignKey:
		return table + "_" + cols + "_fkey"
	case Unique:
		return table + "_" + cols + "_key"
	case Check:
		return table + "_" + cols + "_check"
	case PrimaryKey:
		return table + "_pkey"
	default:
		return table + "_" + cols
	}
}
