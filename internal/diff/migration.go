package diff

import (
	"strings"

	"github.com/pgschema/sqlschema/ir"
)

// Options controls migration generation.
type Options struct {
	// AllowDestructive permits dropping tables and columns. When false such
	// changes are reported through DestructiveChangeError instead.
	AllowDestructive bool
	// Dialect is the target database; operations it cannot express are rejected.
	Dialect ir.Dialect
}

// Migration is an ordered list of operations that turns one schema into another.
type Migration struct {
	Dialect    ir.Dialect
	Operations []Operation
	// Hazards lists the destructive changes that were permitted by AllowDestructive.
	Hazards []Hazard
}

// IsEmpty reports whether the schemas were already equivalent.
func (m *Migration) IsEmpty() bool {
	return len(m.Operations) == 0
}

// Statements renders every operation in order for the migration's dialect.
func (m *Migration) Statements() []string {
	var stmts []string
	for _, op := range m.Operations {
		stmts = append(stmts, op.Statements(m.Dialect)...)
	}
	return stmts
}

// SQL renders the migration as a script with one statement per line.
func (m *Migration) SQL() string {
	stmts := m.Statements()
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "\n") + "\n"
}

// Summary counts operations by kind.
func (m *Migration) Summary() map[OpKind]int {
	counts := make(map[OpKind]int)
	for _, op := range m.Operations {
		counts[op.Kind()]++
	}
	return counts
}
