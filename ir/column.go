package ir

// Column is a table column. Default and Generated are mutually exclusive.
type Column struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
	Default    Expr
	Constraint Constraint
	Generated  *Generated
}

// NewColumn returns a nullable column.
func NewColumn(name string, t Type) Column {
	return Column{Name: name, Type: t, Nullable: true}
}

func (c Column) NotNull() Column {
	c.Nullable = false
	return c
}

// AsPrimaryKey marks the column as (part of) the primary key, which implies NOT NULL.
func (c Column) AsPrimaryKey() Column {
	c.PrimaryKey = true
	c.Nullable = false
	return c
}

func (c Column) WithDefault(e Expr) Column {
	c.Default = e
	return c
}

// References adds a foreign key to table(columns) in the column's own schema.
func (c Column) References(table string, columns ...string) Column {
	c.Constraint = ForeignKey{Table: table, Columns: columns}
	return c
}

func (c Column) WithConstraint(con Constraint) Column {
	c.Constraint = con
	return c
}

func (c Column) GeneratedAs(g *Generated) Column {
	c.Generated = g
	return c
}

// IsNullable reports the effective nullability; primary key columns are never null.
func (c Column) IsNullable() bool {
	return c.Nullable && !c.PrimaryKey
}

// WriteSQL renders the standalone column definition used by ADD COLUMN.
func (c Column) WriteSQL(b *Buffer, d Dialect) {
	c.WriteDefinition(b, d, true, true)
}

// WriteDefinition renders the column definition. inlinePrimaryKey and
// inlineConstraint select whether PRIMARY KEY and the column constraint are
// written here or left to a table-level clause.
func (c Column) WriteDefinition(b *Buffer, d Dialect, inlinePrimaryKey, inlineConstraint bool) {
	b.WriteIdent(d, c.Name)
	b.WriteByte(' ')
	c.Type.WriteSQL(b, d)

	pk := inlinePrimaryKey && c.PrimaryKey
	switch {
	case d == SQLite && c.Generated.IsIdentity():
		if pk {
			b.WriteString(" PRIMARY KEY AUTOINCREMENT")
			pk = false
		}
	case c.Generated != nil:
		b.WriteByte(' ')
		c.Generated.WriteSQL(b, d)
	}

	if !c.IsNullable() {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		WriteDefault(b, d, c.Default)
	}
	if pk {
		b.WriteString(" PRIMARY KEY")
	}
	if inlineConstraint && c.Constraint != nil {
		b.WriteByte(' ')
		c.Constraint.WriteSQL(b, d)
	}
}

// WriteDefault renders a default expression. MySQL only accepts literals and
// trusted raw text without parentheses.
func WriteDefault(b *Buffer, d Dialect, e Expr) {
	if d != MySQL {
		e.WriteSQL(b, d)
		return
	}
	switch e.(type) {
	case Raw, StringLit, IntLit, FloatLit, BoolLit, NullLit:
		e.WriteSQL(b, d)
	default:
		b.WriteByte('(')
		e.WriteSQL(b, d)
		b.WriteByte(')')
	}
}

func (c Column) problems() []string {
	var out []string
	if p := identifierProblem(c.Name); p != "" {
		out = append(out, p)
	}
	out = append(out, c.Type.problems()...)
	if c.Default != nil && c.Generated != nil {
		out = append(out, "default and generated are mutually exclusive")
	}
	if c.Generated.IsStored() && c.Generated.Time == ByDefault {
		out = append(out, "stored generated columns must be GENERATED ALWAYS")
	}
	if c.Default != nil {
		out = append(out, exprProblems(c.Default)...)
	}
	if c.Generated.IsStored() {
		out = append(out, exprProblems(c.Generated.Expr)...)
	}
	switch con := c.Constraint.(type) {
	case ForeignKey:
		if con.Table == "" {
			out = append(out, "foreign key without referenced table")
		}
		if len(con.Columns) != 1 {
			out = append(out, "column foreign key must reference exactly one column")
		}
		for _, ident := range append([]string{con.Schema, con.Table}, con.Columns...) {
			if ident == "" {
				continue
			}
			if p := identifierProblem(ident); p != "" {
				out = append(out, p)
			}
		}
	case PrimaryKey:
		out = append(out, "primary keys are declared with the column's primary key flag")
	case Check:
		if con.Expr == nil {
			out = append(out, "check constraint without expression")
		} else {
			out = append(out, exprProblems(con.Expr)...)
		}
	}
	if c.Constraint != nil && c.Constraint.ConstraintName() != "" {
		if p := identifierProblem(c.Constraint.ConstraintName()); p != "" {
			out = append(out, p)
		}
	}
	return out
}
