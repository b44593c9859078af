package diff

import (
	"sort"

	"github.com/pgschema/sqlschema/ir"
)

// topologicalOrder orders nodes so that every node follows the nodes listed in
// deps[node]. Dependencies outside the node set and self references are ignored.
// Ties are broken by key so the result is deterministic. When the graph has a
// cycle the second return value lists the nodes that could not be ordered.
func topologicalOrder(nodes []string, deps map[string][]string) ([]string, []string) {
	inSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSet[n] = true
	}

	inDegree := make(map[string]int, len(nodes))
	adjList := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		seen := make(map[string]bool)
		for _, dep := range deps[n] {
			if dep == n || !inSet[dep] || seen[dep] {
				continue
			}
			seen[dep] = true
			adjList[dep] = append(adjList[dep], n)
			inDegree[n]++
		}
	}

	var queue []string
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}
	sort.Strings(queue)

	result := make([]string, 0, len(nodes))
	processed := make(map[string]bool, len(nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if processed[current] {
			continue
		}
		processed[current] = true
		result = append(result, current)

		for _, neighbor := range adjList[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 && !processed[neighbor] {
				queue = append(queue, neighbor)
				sort.Strings(queue)
			}
		}
	}

	if len(result) == len(nodes) {
		return result, nil
	}
	var cycle []string
	for _, n := range nodes {
		if !processed[n] {
			cycle = append(cycle, n)
		}
	}
	sort.Strings(cycle)
	return result, cycle
}

// foreignKeyTargets returns the keys of the tables referenced by t's foreign keys.
func foreignKeyTargets(t ir.Table) []string {
	var targets []string
	for _, c := range t.Columns {
		if fk, ok := c.Constraint.(ir.ForeignKey); ok {
			targets = append(targets, fkTarget(fk, t.Schema))
		}
	}
	return targets
}

// sortTablesForCreate orders new tables so referenced tables are created first.
func sortTablesForCreate(tables []ir.Table) ([]ir.Table, error) {
	byKey := make(map[string]ir.Table, len(tables))
	keys := make([]string, 0, len(tables))
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		key := t.Key()
		byKey[key] = t
		keys = append(keys, key)
		deps[key] = foreignKeyTargets(t)
	}

	order, cycle := topologicalOrder(keys, deps)
	if cycle != nil {
		return nil, &DependencyCycleError{Phase: "create", Tables: cycle}
	}
	sorted := make([]ir.Table, len(order))
	for i, key := range order {
		sorted[i] = byKey[key]
	}
	return sorted, nil
}

// sortTablesForDrop orders removed tables so referencing tables are dropped first.
func sortTablesForDrop(tables []ir.Table) ([]ir.Table, error) {
	byKey := make(map[string]ir.Table, len(tables))
	keys := make([]string, 0, len(tables))
	deps := make(map[string][]string, len(tables))
	for _, t := range tables {
		key := t.Key()
		byKey[key] = t
		keys = append(keys, key)
	}
	// A table referencing another must be dropped before it.
	for _, t := range tables {
		for _, target := range foreignKeyTargets(t) {
			deps[target] = append(deps[target], t.Key())
		}
	}

	order, cycle := topologicalOrder(keys, deps)
	if cycle != nil {
		return nil, &DependencyCycleError{Phase: "drop", Tables: cycle}
	}
	sorted := make([]ir.Table, len(order))
	for i, key := range order {
		sorted[i] = byKey[key]
	}
	return sorted, nil
}

// sortAlterTables orders table alterations by table key with two exceptions.
// An alteration adding a foreign key follows the alteration that adds or
// reshapes the referenced columns. An alteration dropping a foreign key
// precedes the alteration that drops the referenced columns or their key.
func sortAlterTables(alters []AlterTable) ([]AlterTable, error) {
	byKey := make(map[string]AlterTable, len(alters))
	keys := make([]string, 0, len(alters))
	for _, a := range alters {
		key := a.Table.String()
		byKey[key] = a
		keys = append(keys, key)
	}
	provided, removed := alterEffects(alters)

	deps := make(map[string][]string, len(alters))
	for _, a := range alters {
		key := a.Table.String()
		for _, change := range a.Changes {
			if fk, cols := addedForeignKey(change); cols != nil {
				target := fkTarget(fk, a.Table.Schema)
				if provided.any(target, fk.Columns) {
					deps[key] = append(deps[key], target)
				}
			}
			if fk, cols := droppedForeignKey(change); cols != nil {
				target := fkTarget(fk, a.Table.Schema)
				if removed.any(target, fk.Columns) {
					deps[target] = append(deps[target], key)
				}
			}
		}
	}

	order, cycle := topologicalOrder(keys, deps)
	if cycle != nil {
		return nil, &DependencyCycleError{Phase: "alter", Tables: cycle}
	}
	sorted := make([]AlterTable, len(order))
	for i, key := range order {
		sorted[i] = byKey[key]
	}
	return sorted, nil
}

// columnSet holds column names per table key.
type columnSet map[string]map[string]bool

func (s columnSet) add(table string, columns ...string) {
	if s[table] == nil {
		s[table] = make(map[string]bool)
	}
	for _, c := range columns {
		s[table][c] = true
	}
}

func (s columnSet) any(table string, columns []string) bool {
	for _, c := range columns {
		if s[table][c] {
			return true
		}
	}
	return false
}

// alterEffects collects the columns each alteration makes available to a
// foreign key (added, retyped or newly keyed) and the columns it takes away
// from one (dropped or losing their primary key or unique constraint).
func alterEffects(alters []AlterTable) (provided, removed columnSet) {
	provided, removed = columnSet{}, columnSet{}
	for _, a := range alters {
		key := a.Table.String()
		for _, change := range a.Changes {
			switch c := change.(type) {
			case AddColumn:
				provided.add(key, c.Column.Name)
			case AlterColumnType:
				provided.add(key, c.Column.Name)
			case DropColumn:
				removed.add(key, c.Name)
			case AddConstraint:
				if isKeyConstraint(c.Def.Constraint) {
					provided.add(key, c.Def.Columns...)
				}
			case DropConstraint:
				if isKeyConstraint(c.Def.Constraint) {
					removed.add(key, c.Def.Columns...)
				}
			}
		}
	}
	return provided, removed
}

func isKeyConstraint(c ir.Constraint) bool {
	switch c.(type) {
	case ir.PrimaryKey, ir.Unique:
		return true
	}
	return false
}

func fkTarget(fk ir.ForeignKey, tableSchema string) string {
	return ir.TableRef{Schema: fk.ResolvedSchema(tableSchema), Name: fk.Table}.String()
}

// addedForeignKey returns the foreign key introduced by a change, if any.
func addedForeignKey(change AlterAction) (ir.ForeignKey, []string) {
	switch c := change.(type) {
	case AddColumn:
		if fk, ok := c.Column.Constraint.(ir.ForeignKey); ok {
			return fk, []string{c.Column.Name}
		}
	case AddConstraint:
		if fk, ok := c.Def.Constraint.(ir.ForeignKey); ok {
			return fk, c.Def.Columns
		}
	}
	return ir.ForeignKey{}, nil
}

// droppedForeignKey returns the foreign key removed by a change, if any.
func droppedForeignKey(change AlterAction) (ir.ForeignKey, []string) {
	if c, ok := change.(DropConstraint); ok {
		if fk, ok := c.Def.Constraint.(ir.ForeignKey); ok {
			return fk, c.Def.Columns
		}
	}
	return ir.ForeignKey{}, nil
}
