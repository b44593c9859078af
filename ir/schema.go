package ir

import (
	"fmt"
	"slices"
)

// Schema is an ordered set of tables, unique by (schema, name).
type Schema struct {
	Tables []Table
}

func NewSchema(tables ...Table) Schema {
	return Schema{Tables: tables}
}

func (s Schema) AddTable(t Table) Schema {
	s.Tables = append(slices.Clip(s.Tables), t)
	return s
}

// Table looks up a table by identity.
func (s Schema) Table(schema, name string) (Table, bool) {
	for _, t := range s.Tables {
		if t.Schema == schema && t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// NameSchema returns a copy with every table and index moved into ns. Foreign
// keys that were unqualified or pointed at the table's previous schema follow.
func (s Schema) NameSchema(ns string) Schema {
	tables := make([]Table, len(s.Tables))
	for i, t := range s.Tables {
		previous := t.Schema
		t = t.InSchema(ns)
		columns := make([]Column, len(t.Columns))
		for j, c := range t.Columns {
			if fk, ok := c.Constraint.(ForeignKey); ok && (fk.Schema == "" || fk.Schema == previous) {
				fk.Schema = ns
				c.Constraint = fk
			}
			columns[j] = c
		}
		t.Columns = columns
		tables[i] = t
	}
	return Schema{Tables: tables}
}

// Validate reports every structural problem that would prevent rendering well-formed DDL.
func (s Schema) Validate() error {
	var problems []string
	tables := make(map[string]bool, len(s.Tables))
	indexes := make(map[string]string)

	for _, t := range s.Tables {
		key := t.Key()
		if tables[key] {
			problems = append(problems, fmt.Sprintf("duplicate table %s", key))
		}
		tables[key] = true
		if p := identifierProblem(t.Name); p != "" {
			problems = append(problems, fmt.Sprintf("table %s: %s", key, p))
		}
		if t.Schema != "" {
			if p := identifierProblem(t.Schema); p != "" {
				problems = append(problems, fmt.Sprintf("table %s: %s", key, p))
			}
		}

		columns := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if columns[c.Name] {
				problems = append(problems, fmt.Sprintf("table %s: duplicate column %s", key, c.Name))
			}
			columns[c.Name] = true
			for _, p := range c.problems() {
				problems = append(problems, fmt.Sprintf("table %s column %s: %s", key, c.Name, p))
			}
		}

		for _, idx := range t.Indexes {
			indexKey := TableRef{Schema: t.Schema, Name: idx.Name}.String()
			if owner, ok := indexes[indexKey]; ok {
				problems = append(problems, fmt.Sprintf("index %s is defined on both %s and %s", indexKey, owner, key))
			}
			indexes[indexKey] = key
			if idx.Table != "" && idx.Table != t.Name {
				problems = append(problems, fmt.Sprintf("index %s belongs to %s but is attached to %s", indexKey, idx.Table, key))
			}
			for _, p := range idx.problems() {
				problems = append(problems, fmt.Sprintf("table %s: %s", key, p))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
