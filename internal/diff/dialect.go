package diff

import (
	"github.com/pgschema/sqlschema/ir"
)

// checkDialect rejects operations the target dialect cannot express so that no
// partial or invalid migration is produced. current holds the tables before the
// migration, keyed like indexTables.
func checkDialect(d ir.Dialect, current map[string]ir.Table, created []ir.Table, alters []AlterTable, indexes []ir.Index) error {
	for _, t := range created {
		if len(t.Columns) == 0 && !d.SupportsEmptyTables() {
			return &UnsupportedError{Dialect: d, Object: "table " + t.Key(), Feature: "a table without columns"}
		}
		pk := t.PrimaryKeyColumns()
		for _, c := range t.Columns {
			if err := checkColumnType(d, t.Ref(), c); err != nil {
				return err
			}
			if d == ir.SQLite && c.Generated.IsIdentity() && (len(pk) != 1 || !c.PrimaryKey || c.Type.Kind != ir.KindInt64) {
				return &UnsupportedError{Dialect: d, Object: columnObject(t.Ref(), c.Name), Feature: "an identity column that is not the INTEGER PRIMARY KEY"}
			}
		}
		for _, idx := range t.Indexes {
			if err := checkIndex(d, idx); err != nil {
				return err
			}
		}
	}

	for _, a := range alters {
		cur := current[a.Table.String()]
		for _, change := range a.Changes {
			if err := checkAlterAction(d, a.Table, cur, change); err != nil {
				return err
			}
		}
	}

	for _, idx := range indexes {
		if err := checkIndex(d, idx); err != nil {
			return err
		}
	}
	return nil
}

// checkAlterAction checks one change to table. cur is the table before the
// migration, or the zero Table when the table is new.
func checkAlterAction(d ir.Dialect, table ir.TableRef, cur ir.Table, change AlterAction) error {
	unsupported := func(column, feature string) error {
		object := "table " + table.String()
		if column != "" {
			object = columnObject(table, column)
		}
		return &UnsupportedError{Dialect: d, Object: object, Feature: feature}
	}

	switch c := change.(type) {
	case AddColumn:
		if err := checkColumnType(d, table, c.Column); err != nil {
			return err
		}
		if d != ir.SQLite {
			return nil
		}
		_, unique := c.Column.Constraint.(ir.Unique)
		switch {
		case c.Column.PrimaryKey || unique:
			return unsupported(c.Column.Name, "adding a PRIMARY KEY or UNIQUE column to an existing table")
		case c.Column.Generated != nil:
			return unsupported(c.Column.Name, "adding a generated column to an existing table")
		case !c.Column.IsNullable() && c.Column.Default == nil:
			return unsupported(c.Column.Name, "adding a NOT NULL column without a default")
		}
	case DropColumn:
		if d != ir.SQLite {
			return nil
		}
		col, ok := cur.FindColumn(c.Name)
		if !ok {
			return nil
		}
		if _, unique := col.Constraint.(ir.Unique); unique || col.PrimaryKey {
			return unsupported(c.Name, "dropping a PRIMARY KEY or UNIQUE column")
		}
	case AlterColumnType:
		if err := checkColumnType(d, table, c.Column); err != nil {
			return err
		}
		if !d.SupportsAlterColumn() {
			return unsupported(c.Column.Name, "changing a column type")
		}
	case AlterColumnNullability:
		if !d.SupportsAlterColumn() {
			return unsupported(c.Column.Name, "changing column nullability")
		}
	case AlterColumnDefault:
		if !d.SupportsAlterColumn() {
			return unsupported(c.Column.Name, "changing a column default or generation")
		}
	case AddConstraint:
		if !d.SupportsAlterConstraint() {
			return unsupported("", "adding a constraint to an existing table")
		}
	case DropConstraint:
		if !d.SupportsAlterConstraint() {
			return unsupported("", "dropping a constraint from an existing table")
		}
	}
	return nil
}

func checkColumnType(d ir.Dialect, table ir.TableRef, c ir.Column) error {
	if reason := c.Type.UnsupportedIn(d); reason != "" {
		return &UnsupportedError{Dialect: d, Object: columnObject(table, c.Name), Feature: reason}
	}
	return nil
}

func checkIndex(d ir.Dialect, idx ir.Index) error {
	if kind := idx.EffectiveKind(); !d.SupportsIndexKind(kind) {
		return &UnsupportedError{Dialect: d, Object: "index " + idx.Name, Feature: "index method " + string(kind)}
	}
	return nil
}

func columnObject(table ir.TableRef, column string) string {
	return "column " + table.String() + "." + column
}
