package inspect

import (
	"fmt"
	"strings"

	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/internal/normalize"
	"github.com/pgschema/sqlschema/ir"
)

// Catalog holds the flat rows read from one namespace of a database.
type Catalog struct {
	Namespace   string
	Tables      []TableRow
	Columns     []ColumnRow
	ForeignKeys []ForeignKeyRow
	Checks      []CheckRow
	Indexes     []IndexRow
}

// Assemble groups the catalog rows into a schema. Columns are grouped by
// table in the order they are reported; foreign keys, checks and indexes
// are then attached by table and column name. Tables without columns are
// kept as empty tables. Tables appear in the order of the table rows,
// followed by any table that only appears in the column rows.
func (c Catalog) Assemble(d ir.Dialect) (ir.Schema, error) {
	a := &assembler{dialect: d, namespace: c.Namespace, tables: make(map[string]*ir.Table)}

	for _, row := range c.Tables {
		a.table(row.Schema, row.Name)
	}

	for _, row := range c.Columns {
		col, err := row.Column(d)
		if err != nil {
			return ir.Schema{}, err
		}
		t := a.table(row.Schema, row.Table)
		*t = t.AddColumn(col)
	}

	if err := a.attachForeignKeys(c.ForeignKeys); err != nil {
		return ir.Schema{}, err
	}
	if err := a.attachChecks(c.Checks); err != nil {
		return ir.Schema{}, err
	}
	if err := a.attachIndexes(c.Indexes); err != nil {
		return ir.Schema{}, err
	}

	schema := ir.Schema{Tables: make([]ir.Table, 0, len(a.order))}
	for _, key := range a.order {
		schema.Tables = append(schema.Tables, *a.tables[key])
	}
	logger.Get().Debug("Assembled catalog",
		"namespace", c.Namespace,
		"dialect", d,
		"tables", len(schema.Tables),
		"columns", len(c.Columns),
		"foreign_keys", len(c.ForeignKeys),
		"indexes", len(c.Indexes))
	return schema, nil
}

type assembler struct {
	dialect   ir.Dialect
	namespace string
	tables    map[string]*ir.Table
	order     []string
}

func (a *assembler) schemaOf(schema string) string {
	if schema == "" {
		return a.namespace
	}
	return schema
}

// table returns the table with the given identity, creating it on first use.
func (a *assembler) table(schema, name string) *ir.Table {
	ref := ir.TableRef{Schema: a.schemaOf(schema), Name: name}
	if t, ok := a.tables[ref.String()]; ok {
		return t
	}
	t := ir.NewTable(name).InSchema(ref.Schema)
	a.tables[ref.String()] = &t
	a.order = append(a.order, ref.String())
	return &t
}

// lookup finds an existing table and column, reporting what is missing.
func (a *assembler) lookup(schema, table, column, source string) (*ir.Table, int, error) {
	ref := ir.TableRef{Schema: a.schemaOf(schema), Name: table}
	t, ok := a.tables[ref.String()]
	if !ok {
		return nil, 0, &diff.UnknownReferenceError{Table: ref, Source: source, Missing: "table " + ref.String()}
	}
	for i, col := range t.Columns {
		if col.Name == column {
			return t, i, nil
		}
	}
	return nil, 0, &diff.UnknownReferenceError{Table: ref, Source: source, Missing: "column " + column}
}

// attach sets the constraint on a column. A column carries at most one
// constraint; later ones are skipped with a warning.
func (a *assembler) attach(t *ir.Table, i int, con ir.Constraint, source string) {
	cols := t.Columns
	if existing := cols[i].Constraint; existing != nil {
		logger.Get().Warn("Column already has a constraint, skipping",
			"table", t.Key(),
			"column", cols[i].Name,
			"kept", existing.Key(t.Schema),
			"skipped", source)
		return
	}
	cols = append([]ir.Column(nil), cols...)
	cols[i].Constraint = con
	t.Columns = cols
}

func (a *assembler) attachForeignKeys(rows []ForeignKeyRow) error {
	type group struct {
		first ForeignKeyRow
		count int
	}
	var keys []string
	groups := make(map[string]*group)
	for _, row := range rows {
		key := a.schemaOf(row.Schema) + "." + row.Table + "." + row.Name
		if g, ok := groups[key]; ok {
			g.count++
			continue
		}
		groups[key] = &group{first: row, count: 1}
		keys = append(keys, key)
	}

	for _, key := range keys {
		g := groups[key]
		row := g.first
		source := "foreign key " + row.Name
		t, i, err := a.lookup(row.Schema, row.Table, row.Column, source)
		if err != nil {
			return err
		}
		if g.count > 1 {
			return &diff.UnsupportedError{Dialect: a.dialect, Object: t.Key() + " " + source, Feature: "multi-column foreign keys"}
		}

		fk := ir.ForeignKey{
			Name:     row.Name,
			Table:    row.ForeignTable,
			Columns:  []string{row.ForeignColumn},
			OnDelete: ir.ParseReferentialAction(row.OnDelete),
			OnUpdate: ir.ParseReferentialAction(row.OnUpdate),
		}
		if s := a.schemaOf(row.ForeignSchema); s != t.Schema {
			fk.Schema = s
		}
		if fk.Name == ir.DefaultConstraintName(t.Name, []string{row.Column}, fk) {
			fk.Name = ""
		}
		a.attach(t, i, fk, source)
	}
	return nil
}

func (a *assembler) attachChecks(rows []CheckRow) error {
	for _, row := range rows {
		source := "check " + row.Name
		t, i, err := a.lookup(row.Schema, row.Table, row.Column, source)
		if err != nil {
			return err
		}
		expr := strings.TrimSpace(row.Expression)
		if a.dialect == ir.Postgres {
			expr = normalize.Expr(expr)
		}
		check := ir.Check{Name: row.Name, Expr: ir.Raw(expr)}
		if check.Name == ir.DefaultConstraintName(t.Name, []string{row.Column}, check) {
			check.Name = ""
		}
		a.attach(t, i, check, source)
	}
	return nil
}

func (a *assembler) attachIndexes(rows []IndexRow) error {
	for _, row := range rows {
		source := "index " + row.Name
		if len(row.Columns) == 0 {
			return fmt.Errorf("index %s on %s has no key columns", row.Name, row.Table)
		}
		t, i, err := a.lookup(row.Schema, row.Table, row.Columns[0], source)
		if err != nil {
			return err
		}

		// A unique constraint on a column that already carries another
		// constraint is kept as a unique index of the same name.
		if row.Constraint && row.Unique && len(row.Columns) == 1 && t.Columns[i].Constraint == nil {
			unique := ir.Unique{Name: row.Name}
			if a.dialect != ir.Postgres || unique.Name == ir.DefaultConstraintName(t.Name, row.Columns, unique) {
				unique.Name = ""
			}
			a.attach(t, i, unique, source)
			continue
		}

		for _, col := range row.Columns[1:] {
			if _, ok := t.FindColumn(col); !ok {
				return &diff.UnknownReferenceError{Table: t.Ref(), Source: source, Missing: "column " + col}
			}
		}
		idx := ir.Index{
			Name:    row.Name,
			Unique:  row.Unique,
			Columns: row.Columns,
			Kind:    ir.ParseIndexKind(row.Kind),
		}
		*t = t.AddIndex(idx)
	}
	return nil
}
