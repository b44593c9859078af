package diff

import (
	"slices"

	"github.com/pgschema/sqlschema/ir"
)

// applyOperations replays operations against an in-memory schema the way a
// database would execute them.
func applyOperations(s ir.Schema, ops []Operation) ir.Schema {
	tables := slices.Clone(s.Tables)
	find := func(ref ir.TableRef) int {
		return slices.IndexFunc(tables, func(t ir.Table) bool { return t.Ref() == ref })
	}

	for _, op := range ops {
		switch o := op.(type) {
		case CreateTable:
			tables = append(tables, o.Table)
		case DropTable:
			i := find(o.Table)
			tables = slices.Delete(tables, i, i+1)
		case CreateIndex:
			i := find(o.Target())
			tables[i] = tables[i].AddIndex(o.Index)
		case DropIndex:
			i := find(o.Target())
			t := tables[i]
			t.Indexes = slices.DeleteFunc(slices.Clone(t.Indexes), func(idx ir.Index) bool {
				return idx.Name == o.Index.Name
			})
			tables[i] = t
		case AlterTable:
			i := find(o.Table)
			tables[i] = applyChanges(tables[i], o.Changes)
		}
	}
	return ir.Schema{Tables: tables}
}

func applyChanges(t ir.Table, changes []AlterAction) ir.Table {
	cols := slices.Clone(t.Columns)
	find := func(name string) int {
		return slices.IndexFunc(cols, func(c ir.Column) bool { return c.Name == name })
	}

	for _, change := range changes {
		switch c := change.(type) {
		case AddColumn:
			cols = append(cols, c.Column)
		case DropColumn:
			i := find(c.Name)
			cols = slices.Delete(cols, i, i+1)
		case AlterColumnType:
			cols[find(c.Column.Name)].Type = c.Column.Type
		case AlterColumnNullability:
			cols[find(c.Column.Name)].Nullable = c.Nullable
		case AlterColumnDefault:
			i := find(c.Column.Name)
			cols[i].Default = c.ToDefault
			cols[i].Generated = c.ToGenerated
		case AddConstraint:
			if _, ok := c.Def.Constraint.(ir.PrimaryKey); ok {
				for _, name := range c.Def.Columns {
					i := find(name)
					cols[i].PrimaryKey = true
					cols[i].Nullable = false
				}
				continue
			}
			cols[find(c.Def.Columns[0])].Constraint = c.Def.Constraint
		case DropConstraint:
			if _, ok := c.Def.Constraint.(ir.PrimaryKey); ok {
				for _, name := range c.Def.Columns {
					if i := find(name); i >= 0 {
						cols[i].PrimaryKey = false
					}
				}
				continue
			}
			cols[find(c.Def.Columns[0])].Constraint = nil
		}
	}
	t.Columns = cols
	return t
}
