package diff

import (
	"fmt"
	"slices"
	"sort"

	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

// Migrate computes the operations that transform current into desired.
//
// Operations are ordered as: CreateTable (referenced tables first), DropIndex,
// AlterTable (by table, see sortAlterTables), CreateIndex, DropTable
// (referencing tables first). Index drops precede the alterations rather than
// following them like index creation: PostgreSQL drops the indexes of a dropped
// column with it and SQLite refuses to drop an indexed column. The exception is
// a unique index backing a foreign key that an alteration removes, which is
// dropped after the alterations.
//
// A new table whose foreign key references columns an existing table gains in
// the same migration is created without that foreign key; it is added by an
// AlterTable of the new table. A table about to be dropped gets an AlterTable
// dropping its foreign keys when they reference columns or keys that another
// alteration removes.
//
// Either a complete migration or an error is returned, never a partial result.
// Migrate performs no I/O and may be called concurrently.
func Migrate(current, desired ir.Schema, opts Options) (*Migration, error) {
	d := opts.Dialect

	if err := desired.Validate(); err != nil {
		return nil, fmt.Errorf("desired schema: %w", err)
	}
	currentTables, err := indexTables(current)
	if err != nil {
		return nil, fmt.Errorf("current schema: %w", err)
	}
	desiredTables, err := indexTables(desired)
	if err != nil {
		return nil, fmt.Errorf("desired schema: %w", err)
	}
	if err := checkReferences(desired, desiredTables); err != nil {
		return nil, err
	}

	var (
		created       []ir.Table
		dropped       []ir.Table
		alters        []AlterTable
		dropIndexes   []ir.Index
		createIndexes []ir.Index
		hazards       []Hazard
	)

	for _, t := range desired.Tables {
		t = resolveTable(t)
		cur, ok := currentTables[t.Key()]
		if !ok {
			created = append(created, t)
			continue
		}
		td := diffTable(resolveTable(cur), t, d)
		if len(td.changes) > 0 {
			alters = append(alters, AlterTable{Table: t.Ref(), Changes: td.changes})
		}
		dropIndexes = append(dropIndexes, td.dropIndexes...)
		createIndexes = append(createIndexes, td.createIndexes...)
		hazards = append(hazards, td.hazards...)
	}
	for _, t := range current.Tables {
		if _, ok := desiredTables[t.Key()]; !ok {
			dropped = append(dropped, t)
			hazards = append(hazards, Hazard{Kind: HazardDropTable, Table: t.Ref()})
		}
	}

	if d.SupportsAlterConstraint() {
		created, alters = deferForeignKeys(created, alters)
		alters = append(alters, releaseDroppedTables(dropped, desiredTables, alters, dropIndexes)...)
	}
	dropIndexes, lateDropIndexes := splitIndexDrops(dropIndexes, alters)

	if err := checkDialect(d, currentTables, created, alters, createIndexes); err != nil {
		return nil, err
	}

	if created, err = sortTablesForCreate(created); err != nil {
		return nil, err
	}
	if alters, err = sortAlterTables(alters); err != nil {
		return nil, err
	}
	if dropped, err = sortTablesForDrop(dropped); err != nil {
		return nil, err
	}

	sortHazards(hazards)
	if len(hazards) > 0 && !opts.AllowDestructive {
		logger.Get().Debug("Rejected destructive migration", "hazards", len(hazards))
		return nil, &DestructiveChangeError{Hazards: hazards}
	}

	sortIndexes(dropIndexes)
	sortIndexes(lateDropIndexes)
	sortIndexes(createIndexes)

	var ops []Operation
	for _, t := range created {
		ops = append(ops, CreateTable{Table: t})
	}
	for _, idx := range dropIndexes {
		ops = append(ops, DropIndex{Index: idx})
	}
	for _, a := range alters {
		ops = append(ops, a)
	}
	for _, idx := range lateDropIndexes {
		ops = append(ops, DropIndex{Index: idx})
	}
	for _, idx := range createIndexes {
		ops = append(ops, CreateIndex{Index: idx})
	}
	for _, t := range dropped {
		ops = append(ops, DropTable{Table: t.Ref()})
	}

	logger.Get().Debug("Computed migration",
		"dialect", d,
		"create_tables", len(created),
		"alter_tables", len(alters),
		"drop_tables", len(dropped),
		"create_indexes", len(createIndexes),
		"drop_indexes", len(dropIndexes)+len(lateDropIndexes),
		"hazards", len(hazards),
	)

	return &Migration{Dialect: d, Operations: ops, Hazards: hazards}, nil
}

// indexTables keys tables by "schema.name".
func indexTables(s ir.Schema) (map[string]ir.Table, error) {
	tables := make(map[string]ir.Table, len(s.Tables))
	for _, t := range s.Tables {
		key := t.Key()
		if _, ok := tables[key]; ok {
			return nil, &ir.ValidationError{Problems: []string{"duplicate table " + key}}
		}
		tables[key] = t
	}
	return tables, nil
}

// resolveTable points every index at its owning table and qualifies foreign
// keys that omit a schema with the table's own schema.
func resolveTable(t ir.Table) ir.Table {
	if len(t.Indexes) > 0 {
		indexes := make([]ir.Index, len(t.Indexes))
		for i, idx := range t.Indexes {
			idx.Table = t.Name
			idx.Schema = t.Schema
			if idx.Kind == "" {
				idx.Kind = ir.IndexBTree
			}
			indexes[i] = idx
		}
		t.Indexes = indexes
	}

	if t.Schema == "" {
		return t
	}
	var columns []ir.Column
	for i, c := range t.Columns {
		fk, ok := c.Constraint.(ir.ForeignKey)
		if !ok || fk.Schema != "" {
			continue
		}
		if columns == nil {
			columns = slices.Clone(t.Columns)
		}
		fk.Schema = t.Schema
		columns[i].Constraint = fk
	}
	if columns != nil {
		t.Columns = columns
	}
	return t
}

// checkReferences verifies that foreign keys and indexes in the desired schema
// only name tables and columns that exist in it.
func checkReferences(desired ir.Schema, tables map[string]ir.Table) error {
	for _, t := range desired.Tables {
		for _, c := range t.Columns {
			fk, ok := c.Constraint.(ir.ForeignKey)
			if !ok {
				continue
			}
			ref := ir.TableRef{Schema: fk.ResolvedSchema(t.Schema), Name: fk.Table}
			target, ok := tables[ref.String()]
			if !ok {
				return &UnknownReferenceError{
					Table:   t.Ref(),
					Source:  "foreign key on column " + c.Name,
					Missing: "table " + ref.String(),
				}
			}
			for _, col := range fk.Columns {
				if _, ok := target.FindColumn(col); !ok {
					return &UnknownReferenceError{
						Table:   t.Ref(),
						Source:  "foreign key on column " + c.Name,
						Missing: "column " + ref.String() + "." + col,
					}
				}
			}
		}
		for _, idx := range t.Indexes {
			for _, col := range idx.Columns {
				if _, ok := t.FindColumn(col); !ok {
					return &UnknownReferenceError{
						Table:   t.Ref(),
						Source:  "index " + idx.Name,
						Missing: "column " + t.Key() + "." + col,
					}
				}
			}
		}
	}
	return nil
}

type tableDiff struct {
	changes       []AlterAction
	dropIndexes   []ir.Index
	createIndexes []ir.Index
	hazards       []Hazard
}

// diffTable compares two versions of a table. Changes are grouped in the order
// constraint drops, column drops, type, nullability and default alterations,
// column additions, constraint additions.
func diffTable(cur, des ir.Table, d ir.Dialect) tableDiff {
	ref := des.Ref()
	var (
		dropConstraints []AlterAction
		dropColumns     []AlterAction
		alterTypes      []AlterAction
		alterNulls      []AlterAction
		alterDefaults   []AlterAction
		addColumns      []AlterAction
		addConstraints  []AlterAction
		result          tableDiff
	)
	recreated := make(map[string]bool)

	for _, dc := range des.Columns {
		cc, ok := cur.FindColumn(dc.Name)
		if !ok {
			addColumns = append(addColumns, AddColumn{Column: dc})
			continue
		}

		if needsRecreate(cc, dc, d) {
			recreated[dc.Name] = true
			dropColumns = append(dropColumns, DropColumn{Name: dc.Name})
			addColumns = append(addColumns, AddColumn{Column: dc})
			result.hazards = append(result.hazards, Hazard{Kind: HazardRecreateColumn, Table: ref, Column: dc.Name})
			continue
		}

		typeChanged := !cc.Type.Equal(dc.Type)
		if typeChanged {
			alterTypes = append(alterTypes, AlterColumnType{Column: dc, From: cc.Type})
		}
		if cc.IsNullable() != dc.IsNullable() {
			alterNulls = append(alterNulls, AlterColumnNullability{Column: dc, Nullable: dc.IsNullable()})
		}
		if !ir.ExprEqual(cc.Default, dc.Default) || !generatedEqual(cc.Generated, dc.Generated, d) {
			alterDefaults = append(alterDefaults, AlterColumnDefault{
				Column:        dc,
				FromDefault:   cc.Default,
				ToDefault:     dc.Default,
				FromGenerated: cc.Generated,
				ToGenerated:   dc.Generated,
			})
		}

		// A foreign key must match the referenced column's type, so it is
		// dropped and re-added around a type change.
		_, isFK := dc.Constraint.(ir.ForeignKey)
		if constraintKey(cc.Constraint, cur.Schema) != constraintKey(dc.Constraint, des.Schema) || (typeChanged && isFK) {
			if cc.Constraint != nil {
				dropConstraints = append(dropConstraints, DropConstraint{Def: columnConstraintDef(cur.Name, cc)})
			}
			if dc.Constraint != nil {
				addConstraints = append(addConstraints, AddConstraint{Def: ir.ConstraintDef{Columns: []string{dc.Name}, Constraint: dc.Constraint}})
			}
		}
	}

	for _, cc := range cur.Columns {
		if _, ok := des.FindColumn(cc.Name); !ok {
			// MySQL refuses to drop a column that still carries a foreign key.
			if _, isFK := cc.Constraint.(ir.ForeignKey); isFK && d.SupportsAlterConstraint() {
				dropConstraints = append(dropConstraints, DropConstraint{Def: columnConstraintDef(cur.Name, cc)})
			}
			dropColumns = append(dropColumns, DropColumn{Name: cc.Name})
			result.hazards = append(result.hazards, Hazard{Kind: HazardDropColumn, Table: ref, Column: cc.Name})
		}
	}

	curPK, desPK := cur.PrimaryKeyColumns(), des.PrimaryKeyColumns()
	if !slices.Equal(curPK, desPK) {
		if len(curPK) > 0 {
			pk := ir.PrimaryKey{Columns: curPK}
			dropConstraints = append(dropConstraints, DropConstraint{Def: ir.ConstraintDef{
				Name:       ir.DefaultConstraintName(cur.Name, curPK, pk),
				Columns:    curPK,
				Constraint: pk,
			}})
		}
		if len(desPK) > 0 {
			addConstraints = append(addConstraints, AddConstraint{Def: ir.ConstraintDef{
				Columns:    desPK,
				Constraint: ir.PrimaryKey{Columns: desPK},
			}})
		}
	}

	for _, group := range [][]AlterAction{dropConstraints, dropColumns, alterTypes, alterNulls, alterDefaults, addColumns, addConstraints} {
		result.changes = append(result.changes, group...)
	}

	for _, di := range des.Indexes {
		ci, ok := cur.FindIndex(di.Name)
		switch {
		case !ok:
			result.createIndexes = append(result.createIndexes, di)
		case !ci.SameDefinition(di) || touchesAny(ci.Columns, recreated):
			result.dropIndexes = append(result.dropIndexes, ci)
			result.createIndexes = append(result.createIndexes, di)
		}
	}
	for _, ci := range cur.Indexes {
		if _, ok := des.FindIndex(ci.Name); !ok {
			result.dropIndexes = append(result.dropIndexes, ci)
		}
	}

	return result
}

// deferForeignKeys takes foreign keys out of new tables when they reference
// columns that an existing table adds, retypes or newly keys in the same
// migration. Each is added back by an AlterTable of the new table.
func deferForeignKeys(created []ir.Table, alters []AlterTable) ([]ir.Table, []AlterTable) {
	provided, _ := alterEffects(alters)
	out := make([]ir.Table, len(created))
	for i, t := range created {
		var (
			columns []ir.Column
			changes []AlterAction
		)
		for j, c := range t.Columns {
			fk, ok := c.Constraint.(ir.ForeignKey)
			if !ok || !provided.any(fkTarget(fk, t.Schema), fk.Columns) {
				continue
			}
			if columns == nil {
				columns = slices.Clone(t.Columns)
			}
			columns[j].Constraint = nil
			changes = append(changes, AddConstraint{Def: ir.ConstraintDef{Columns: []string{c.Name}, Constraint: fk}})
		}
		if columns != nil {
			t.Columns = columns
			alters = append(alters, AlterTable{Table: t.Ref(), Changes: changes})
		}
		out[i] = t
	}
	return out, alters
}

// releaseDroppedTables returns alterations that drop the foreign keys of
// tables about to be dropped, for foreign keys referencing columns or keys
// that an alteration or a unique index drop removes before the table goes.
func releaseDroppedTables(dropped []ir.Table, desired map[string]ir.Table, alters []AlterTable, dropIndexes []ir.Index) []AlterTable {
	_, removed := alterEffects(alters)
	for _, idx := range dropIndexes {
		if idx.Unique {
			removed.add(indexTable(idx), idx.Columns...)
		}
	}

	var out []AlterTable
	for _, t := range dropped {
		var changes []AlterAction
		for _, c := range t.Columns {
			fk, ok := c.Constraint.(ir.ForeignKey)
			if !ok {
				continue
			}
			target := fkTarget(fk, t.Schema)
			if _, kept := desired[target]; kept && removed.any(target, fk.Columns) {
				changes = append(changes, DropConstraint{Def: columnConstraintDef(t.Name, c)})
			}
		}
		if len(changes) > 0 {
			out = append(out, AlterTable{Table: t.Ref(), Changes: changes})
		}
	}
	return out
}

// splitIndexDrops holds back a unique index that backs a foreign key dropped by
// one of the alterations, unless its own table drops one of the indexed columns.
func splitIndexDrops(indexes []ir.Index, alters []AlterTable) (early, late []ir.Index) {
	released, droppedColumns := columnSet{}, columnSet{}
	for _, a := range alters {
		for _, change := range a.Changes {
			if fk, cols := droppedForeignKey(change); cols != nil {
				released.add(fkTarget(fk, a.Table.Schema), fk.Columns...)
			}
			if c, ok := change.(DropColumn); ok {
				droppedColumns.add(a.Table.String(), c.Name)
			}
		}
	}

	for _, idx := range indexes {
		table := indexTable(idx)
		if idx.Unique && released.any(table, idx.Columns) && !droppedColumns.any(table, idx.Columns) {
			late = append(late, idx)
			continue
		}
		early = append(early, idx)
	}
	return early, late
}

func indexTable(idx ir.Index) string {
	return ir.TableRef{Schema: idx.Schema, Name: idx.Table}.String()
}

// needsRecreate reports whether a column must be dropped and added again because
// a stored generation expression cannot be attached to an existing column.
// MySQL converts in place with MODIFY COLUMN.
func needsRecreate(cur, des ir.Column, d ir.Dialect) bool {
	return d != ir.MySQL && des.Generated.IsStored() && !cur.Generated.IsStored()
}

// generatedEqual compares generation clauses. Only PostgreSQL distinguishes
// ALWAYS from BY DEFAULT for identity columns.
func generatedEqual(a, b *ir.Generated, d ir.Dialect) bool {
	if d != ir.Postgres && a.IsIdentity() && b.IsIdentity() {
		return true
	}
	return ir.GeneratedEqual(a, b)
}

func constraintKey(c ir.Constraint, tableSchema string) string {
	if c == nil {
		return ""
	}
	return c.Key(tableSchema)
}

// columnConstraintDef names an existing column constraint, falling back to the
// name PostgreSQL would have generated.
func columnConstraintDef(table string, c ir.Column) ir.ConstraintDef {
	name := c.Constraint.ConstraintName()
	if name == "" {
		name = ir.DefaultConstraintName(table, []string{c.Name}, c.Constraint)
	}
	return ir.ConstraintDef{Name: name, Columns: []string{c.Name}, Constraint: c.Constraint}
}

func touchesAny(columns []string, set map[string]bool) bool {
	for _, c := range columns {
		if set[c] {
			return true
		}
	}
	return false
}

func sortHazards(hazards []Hazard) {
	sort.Slice(hazards, func(i, j int) bool {
		a, b := hazards[i], hazards[j]
		if a.Table.String() != b.Table.String() {
			return a.Table.String() < b.Table.String()
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Column < b.Column
	})
}

func sortIndexes(indexes []ir.Index) {
	sort.Slice(indexes, func(i, j int) bool {
		a := ir.TableRef{Schema: indexes[i].Schema, Name: indexes[i].Table}.String()
		b := ir.TableRef{Schema: indexes[j].Schema, Name: indexes[j].Table}.String()
		if a != b {
			return a < b
		}
		return indexes[i].Name < indexes[j].Name
	})
}
