package plan

import (
	"strings"

	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/ir"
)

// Step is a single statement of a plan.
type Step struct {
	SQL                 string `json:"sql"`
	CanRunInTransaction bool   `json:"can_run_in_transaction"`
}

// operationSteps renders op. With online set, PostgreSQL index builds and
// constraint additions are rewritten into statements that avoid holding
// ACCESS EXCLUSIVE locks while existing rows are scanned.
func operationSteps(op diff.Operation, d ir.Dialect, online bool) []Step {
	if online && d == ir.Postgres {
		switch o := op.(type) {
		case diff.CreateIndex:
			return indexRewrite(o.Index)
		case diff.AlterTable:
			return alterTableRewrite(o)
		}
	}
	return transactional(op.Statements(d))
}

func transactional(stmts []string) []Step {
	steps := make([]Step, len(stmts))
	for i, s := range stmts {
		steps[i] = Step{SQL: s, CanRunInTransaction: true}
	}
	return steps
}

// indexRewrite builds the index with CONCURRENTLY, which PostgreSQL refuses
// inside a transaction block.
func indexRewrite(idx ir.Index) []Step {
	stmt := strings.Replace(ir.SQL(idx, ir.Postgres), "INDEX ", "INDEX CONCURRENTLY ", 1)
	return []Step{{SQL: stmt + ";", CanRunInTransaction: false}}
}

// alterTableRewrite keeps the plain changes in one ALTER TABLE and moves
// foreign keys, checks and SET NOT NULL into NOT VALID + VALIDATE sequences
// that run after it.
func alterTableRewrite(o diff.AlterTable) []Step {
	table := ir.QualifiedName(ir.Postgres, o.Table.Schema, o.Table.Name)

	var rest []diff.AlterAction
	var late []Step
	for _, change := range o.Changes {
		switch c := change.(type) {
		case diff.AddConstraint:
			switch c.Def.Constraint.(type) {
			case ir.ForeignKey, ir.Check:
				late = append(late, constraintRewrite(table, o.Table.Name, c.Def)...)
				continue
			}
		case diff.AlterColumnNullability:
			if !c.Nullable {
				late = append(late, notNullRewrite(table, o.Table.Name, c.Column.Name)...)
				continue
			}
		}
		rest = append(rest, change)
	}

	steps := transactional(diff.AlterTable{Table: o.Table, Changes: rest}.Statements(ir.Postgres))
	return append(steps, late...)
}

func constraintRewrite(table, tableName string, def ir.ConstraintDef) []Step {
	name := def.EffectiveName()
	if name == "" {
		name = ir.DefaultConstraintName(tableName, def.Columns, def.Constraint)
	}
	def.Name = name
	return transactional([]string{
		"ALTER TABLE " + table + " ADD " + ir.SQL(def, ir.Postgres) + " NOT VALID;",
		"ALTER TABLE " + table + " VALIDATE CONSTRAINT " + ir.QuoteIdentifier(ir.Postgres, name) + ";",
	})
}

// notNullRewrite lets SET NOT NULL reuse a validated check instead of scanning
// the table under lock. The helper check is dropped afterwards.
func notNullRewrite(table, tableName, column string) []Step {
	name := ir.QuoteIdentifier(ir.Postgres, tableName+"_"+column+"_not_null")
	col := ir.QuoteIdentifier(ir.Postgres, column)
	return transactional([]string{
		"ALTER TABLE " + table + " ADD CONSTRAINT " + name + " CHECK (" + col + " IS NOT NULL) NOT VALID;",
		"ALTER TABLE " + table + " VALIDATE CONSTRAINT " + name + ";",
		"ALTER TABLE " + table + " ALTER COLUMN " + col + " SET NOT NULL;",
		"ALTER TABLE " + table + " DROP CONSTRAINT " + name + ";",
	})
}
