package diff

import (
	"github.com/pgschema/sqlschema/ir"
)

// AlterAction is one change inside an AlterTable.
type AlterAction interface {
	// Describe returns a short human readable summary such as "add column email".
	Describe() string
	clauses(d ir.Dialect) []string
}

// columnAlteration is implemented by changes that MySQL expresses as MODIFY COLUMN.
type columnAlteration interface {
	desiredColumn() ir.Column
}

// AddColumn adds a column with its full definition.
type AddColumn struct {
	Column ir.Column
}

// DropColumn drops a column.
type DropColumn struct {
	Name string
}

// AlterColumnType changes a column's type. Column is the desired definition.
type AlterColumnType struct {
	Column ir.Column
	From   ir.Type
}

// AlterColumnNullability sets or drops NOT NULL.
type AlterColumnNullability struct {
	Column   ir.Column
	Nullable bool
}

// AlterColumnDefault moves a column between default, identity and stored generated states.
type AlterColumnDefault struct {
	Column        ir.Column
	FromDefault   ir.Expr
	ToDefault     ir.Expr
	FromGenerated *ir.Generated
	ToGenerated   *ir.Generated
}

// AddConstraint adds a table-level constraint.
type AddConstraint struct {
	Def ir.ConstraintDef
}

// DropConstraint drops a constraint. The definition is kept because MySQL spells
// the drop differently per constraint variant.
type DropConstraint struct {
	Def ir.ConstraintDef
}

func (a AlterColumnType) desiredColumn() ir.Column        { return a.Column }
func (a AlterColumnNullability) desiredColumn() ir.Column { return a.Column }
func (a AlterColumnDefault) desiredColumn() ir.Column     { return a.Column }

func (a AddColumn) Describe() string       { return "add column " + a.Column.Name }
func (a DropColumn) Describe() string      { return "drop column " + a.Name }
func (a AlterColumnType) Describe() string { return "alter column " + a.Column.Name + " type" }
func (a AlterColumnNullability) Describe() string {
	return "alter column " + a.Column.Name + " nullability"
}
func (a AlterColumnDefault) Describe() string { return "alter column " + a.Column.Name + " default" }
func (a AddConstraint) Describe() string      { return "add constraint " + constraintLabel(a.Def) }
func (a DropConstraint) Describe() string     { return "drop constraint " + constraintLabel(a.Def) }

func constraintLabel(def ir.ConstraintDef) string {
	if name := def.EffectiveName(); name != "" {
		return name
	}
	switch def.Constraint.(type) {
	case ir.PrimaryKey:
		return "primary key"
	case ir.ForeignKey:
		return "foreign key"
	case ir.Unique:
		return "unique"
	default:
		return "check"
	}
}

func alterColumnPrefix(d ir.Dialect, name string) string {
	return "ALTER COLUMN " + ir.QuoteIdentifier(d, name) + " "
}

func (a AddColumn) clauses(d ir.Dialect) []string {
	var b ir.Buffer
	b.WriteString("ADD COLUMN ")
	inline := d.InlineForeignKeys()
	a.Column.WriteDefinition(&b, d, false, inline)
	out := []string{b.String()}
	if !inline && a.Column.Constraint != nil {
		out = append(out, "ADD "+ir.SQL(ir.ConstraintDef{Columns: []string{a.Column.Name}, Constraint: a.Column.Constraint}, d))
	}
	return out
}

func (a DropColumn) clauses(d ir.Dialect) []string {
	return []string{"DROP COLUMN " + ir.QuoteIdentifier(d, a.Name)}
}

func (a AlterColumnType) clauses(d ir.Dialect) []string {
	typ := a.Column.Type.SQL(d)
	clause := alterColumnPrefix(d, a.Column.Name) + "TYPE " + typ
	if d == ir.Postgres {
		clause += " USING " + ir.QuoteIdentifier(d, a.Column.Name) + "::" + typ
	}
	return []string{clause}
}

func (a AlterColumnNullability) clauses(d ir.Dialect) []string {
	if a.Nullable {
		return []string{alterColumnPrefix(d, a.Column.Name) + "DROP NOT NULL"}
	}
	return []string{alterColumnPrefix(d, a.Column.Name) + "SET NOT NULL"}
}

func (a AlterColumnDefault) clauses(d ir.Dialect) []string {
	prefix := alterColumnPrefix(d, a.Column.Name)
	var out []string

	switch {
	case a.FromGenerated.IsIdentity() && !a.ToGenerated.IsIdentity():
		out = append(out, prefix+"DROP IDENTITY")
	case a.FromGenerated.IsStored() && !a.ToGenerated.IsStored():
		out = append(out, prefix+"DROP EXPRESSION")
	}
	if a.FromDefault != nil && a.ToDefault == nil {
		out = append(out, prefix+"DROP DEFAULT")
	}

	switch {
	case a.ToGenerated.IsIdentity():
		if !a.FromGenerated.IsIdentity() {
			out = append(out, prefix+"ADD GENERATED "+a.ToGenerated.Time.String()+" AS IDENTITY")
		} else if a.FromGenerated.Time != a.ToGenerated.Time {
			out = append(out, prefix+"SET GENERATED "+a.ToGenerated.Time.String())
		}
	case a.ToGenerated.IsStored():
		var from ir.Expr
		if a.FromGenerated != nil {
			from = a.FromGenerated.Expr
		}
		if !ir.ExprEqual(from, a.ToGenerated.Expr) {
			out = append(out, prefix+"SET EXPRESSION AS ("+ir.SQL(a.ToGenerated.Expr, d)+")")
		}
	}
	if a.ToDefault != nil && !ir.ExprEqual(a.FromDefault, a.ToDefault) {
		var b ir.Buffer
		b.WriteString(prefix)
		b.WriteString("SET DEFAULT ")
		ir.WriteDefault(&b, d, a.ToDefault)
		out = append(out, b.String())
	}
	return out
}

func (a AddConstraint) clauses(d ir.Dialect) []string {
	return []string{"ADD " + ir.SQL(a.Def, d)}
}

func (a DropConstraint) clauses(d ir.Dialect) []string {
	name := a.Def.EffectiveName()
	if d == ir.MySQL {
		switch a.Def.Constraint.(type) {
		case ir.PrimaryKey:
			return []string{"DROP PRIMARY KEY"}
		case ir.ForeignKey:
			return []string{"DROP FOREIGN KEY " + ir.QuoteIdentifier(d, name)}
		case ir.Unique:
			return []string{"DROP INDEX " + ir.QuoteIdentifier(d, name)}
		case ir.Check:
			return []string{"DROP CHECK " + ir.QuoteIdentifier(d, name)}
		}
	}
	return []string{"DROP CONSTRAINT " + ir.QuoteIdentifier(d, name)}
}
