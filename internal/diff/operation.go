package diff

import (
	"strings"

	"github.com/pgschema/sqlschema/ir"
)

// OpKind names an operation variant.
type OpKind string

const (
	OpCreateTable OpKind = "create_table"
	OpDropTable   OpKind = "drop_table"
	OpCreateIndex OpKind = "create_index"
	OpDropIndex   OpKind = "drop_index"
	OpAlterTable  OpKind = "alter_table"
)

// Operation is one atomic DDL action. Each operation renders independently of
// the others; Statements returns one or more statements terminated by ";".
type Operation interface {
	ir.ToSQL
	Statements(d ir.Dialect) []string
	Kind() OpKind
	Target() ir.TableRef
}

// CreateTable creates a table together with its indexes.
type CreateTable struct {
	Table ir.Table
}

// DropTable drops a table.
type DropTable struct {
	Table ir.TableRef
}

// CreateIndex creates an index on an existing table.
type CreateIndex struct {
	Index ir.Index
}

// DropIndex drops an index. The full definition is kept because MySQL needs the owning table.
type DropIndex struct {
	Index ir.Index
}

// AlterTable applies ordered changes to one table.
type AlterTable struct {
	Table   ir.TableRef
	Changes []AlterAction
}

func (CreateTable) Kind() OpKind { return OpCreateTable }
func (DropTable) Kind() OpKind   { return OpDropTable }
func (CreateIndex) Kind() OpKind { return OpCreateIndex }
func (DropIndex) Kind() OpKind   { return OpDropIndex }
func (AlterTable) Kind() OpKind  { return OpAlterTable }

func (o CreateTable) Target() ir.TableRef { return o.Table.Ref() }
func (o DropTable) Target() ir.TableRef   { return o.Table }
func (o CreateIndex) Target() ir.TableRef {
	return ir.TableRef{Schema: o.Index.Schema, Name: o.Index.Table}
}
func (o DropIndex) Target() ir.TableRef {
	return ir.TableRef{Schema: o.Index.Schema, Name: o.Index.Table}
}
func (o AlterTable) Target() ir.TableRef { return o.Table }

func statement(node ir.ToSQL, d ir.Dialect) string {
	return ir.SQL(node, d) + ";"
}

func (o CreateTable) Statements(d ir.Dialect) []string {
	stmts := []string{statement(o.Table, d)}
	for _, idx := range o.Table.Indexes {
		stmts = append(stmts, statement(idx, d))
	}
	return stmts
}

func (o DropTable) Statements(d ir.Dialect) []string {
	return []string{"DROP TABLE " + ir.QualifiedName(d, o.Table.Schema, o.Table.Name) + ";"}
}

func (o CreateIndex) Statements(d ir.Dialect) []string {
	return []string{statement(o.Index, d)}
}

func (o DropIndex) Statements(d ir.Dialect) []string {
	var b ir.Buffer
	o.Index.WriteDrop(&b, d)
	return []string{b.String() + ";"}
}

// Statements renders one ALTER TABLE with comma-separated clauses, or one
// statement per clause where the dialect allows only a single clause.
func (o AlterTable) Statements(d ir.Dialect) []string {
	clauses := o.clauses(d)
	if len(clauses) == 0 {
		return nil
	}
	prefix := "ALTER TABLE " + ir.QualifiedName(d, o.Table.Schema, o.Table.Name) + " "
	if !d.SupportsMultipleAlterClauses() {
		stmts := make([]string, len(clauses))
		for i, c := range clauses {
			stmts[i] = prefix + c + ";"
		}
		return stmts
	}
	if len(clauses) == 1 {
		return []string{prefix + clauses[0] + ";"}
	}
	return []string{strings.TrimSuffix(prefix, " ") + "\n    " + strings.Join(clauses, ",\n    ") + ";"}
}

// clauses renders every change. MySQL folds all alterations of one column into a
// single MODIFY COLUMN carrying the desired definition.
func (o AlterTable) clauses(d ir.Dialect) []string {
	var out []string
	modified := make(map[string]bool)
	for _, change := range o.Changes {
		if col, ok := change.(columnAlteration); ok && d == ir.MySQL {
			def := col.desiredColumn()
			if modified[def.Name] {
				continue
			}
			modified[def.Name] = true
			var b ir.Buffer
			b.WriteString("MODIFY COLUMN ")
			def.WriteDefinition(&b, d, false, false)
			out = append(out, b.String())
			continue
		}
		out = append(out, change.clauses(d)...)
	}
	return out
}

func writeStatements(b *ir.Buffer, stmts []string) {
	for i, s := range stmts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(s)
	}
}

func (o CreateTable) WriteSQL(b *ir.Buffer, d ir.Dialect) { writeStatements(b, o.Statements(d)) }
func (o DropTable) WriteSQL(b *ir.Buffer, d ir.Dialect)   { writeStatements(b, o.Statements(d)) }
func (o CreateIndex) WriteSQL(b *ir.Buffer, d ir.Dialect) { writeStatements(b, o.Statements(d)) }
func (o DropIndex) WriteSQL(b *ir.Buffer, d ir.Dialect)   { writeStatements(b, o.Statements(d)) }
func (o AlterTable) WriteSQL(b *ir.Buffer, d ir.Dialect)  { writeStatements(b, o.Statements(d)) }
