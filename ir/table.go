package ir

import (
	"slices"
)

// TableRef identifies a table by schema and name. An empty schema means the
// connection's default namespace.
type TableRef struct {
	Schema string `json:"schema,omitempty"`
	Name   string `json:"name"`
}

func (r TableRef) String() string {
	if r.Schema == "" {
		return r.Name
	}
	return r.Schema + "." + r.Name
}

func (r TableRef) WriteSQL(b *Buffer, d Dialect) {
	b.WriteTableName(d, r.Schema, r.Name)
}

// Table is a table definition. Column order is significant for CREATE TABLE.
type Table struct {
	Schema  string
	Name    string
	Columns []Column
	Indexes []Index
}

func NewTable(name string) Table {
	return Table{Name: name}
}

// InSchema moves the table and its indexes into a schema.
func (t Table) InSchema(schema string) Table {
	t.Schema = schema
	if len(t.Indexes) > 0 {
		indexes := make([]Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			idx.Schema = schema
			indexes[i] = idx
		}
		t.Indexes = indexes
	}
	return t
}

func (t Table) AddColumn(c Column) Table {
	t.Columns = append(slices.Clip(t.Columns), c)
	return t
}

// AddIndex attaches an index, recording this table as its owner.
func (t Table) AddIndex(i Index) Table {
	i.Table = t.Name
	i.Schema = t.Schema
	t.Indexes = append(slices.Clip(t.Indexes), i)
	return t
}

func (t Table) Ref() TableRef {
	return TableRef{Schema: t.Schema, Name: t.Name}
}

// Key is the "schema.name" identity used to match tables across schemas.
func (t Table) Key() string {
	return t.Ref().String()
}

func (t Table) FindColumn(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

func (t Table) FindIndex(name string) (Index, bool) {
	for _, i := range t.Indexes {
		if i.Name == name {
			return i, true
		}
	}
	return Index{}, false
}

// PrimaryKeyColumns returns the primary key column names in column order.
func (t Table) PrimaryKeyColumns() []string {
	var cols []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			cols = append(cols, c.Name)
		}
	}
	return cols
}

// WriteSQL renders CREATE TABLE. Indexes are separate statements and are not included.
func (t Table) WriteSQL(b *Buffer, d Dialect) {
	b.WriteString("CREATE TABLE ")
	b.WriteTableName(d, t.Schema, t.Name)
	if len(t.Columns) == 0 {
		b.WriteString(" ()")
		return
	}

	pk := t.PrimaryKeyColumns()
	inlinePK := len(pk) == 1
	inlineConstraints := d.InlineForeignKeys()

	b.WriteString(" (\n")
	first := true
	item := func() {
		if !first {
			b.WriteString(",\n")
		}
		first = false
		b.WriteString("    ")
	}
	for _, c := range t.Columns {
		item()
		c.WriteDefinition(b, d, inlinePK, inlineConstraints)
	}
	if len(pk) > 1 {
		item()
		ConstraintDef{Columns: pk, Constraint: PrimaryKey{}}.WriteSQL(b, d)
	}
	if !inlineConstraints {
		for _, c := range t.Columns {
			if c.Constraint == nil {
				continue
			}
			item()
			ConstraintDef{Columns: []string{c.Name}, Constraint: c.Constraint}.WriteSQL(b, d)
		}
	}
	b.WriteString("\n)")
}
