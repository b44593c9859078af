package ir

import (
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/lib/pq"
)

// Expr is a SQL expression used for defaults, generated columns and check predicates.
type Expr interface {
	ToSQL
	isExpr()
}

// Raw is trusted SQL copied into the output verbatim.
type Raw string

// StringLit is a string literal.
type StringLit string

// IntLit is an integer literal.
type IntLit int64

// FloatLit is a floating point literal.
type FloatLit float64

// BoolLit is a boolean literal.
type BoolLit bool

// NullLit is the NULL literal.
type NullLit struct{}

// ColumnRef references a column, optionally qualified by table.
type ColumnRef struct {
	Table  string
	Column string
}

// Func is a function call. The name is written as given.
type Func struct {
	Name string
	Args []Expr
}

// Binary applies an infix operator such as "+", "AND" or ">=".
type Binary struct {
	Op    string
	Left  Expr
	Right Expr
}

// Unary applies a prefix operator such as "NOT" or "-".
type Unary struct {
	Op   string
	Expr Expr
}

func (Raw) isExpr()       {}
func (StringLit) isExpr() {}
func (IntLit) isExpr()    {}
func (FloatLit) isExpr()  {}
func (BoolLit) isExpr()   {}
func (NullLit) isExpr()   {}
func (ColumnRef) isExpr() {}
func (Func) isExpr()      {}
func (Binary) isExpr()    {}
func (Unary) isExpr()     {}

func (e Raw) WriteSQL(b *Buffer, _ Dialect) {
	b.WriteString(string(e))
}

func (e StringLit) WriteSQL(b *Buffer, d Dialect) {
	b.WriteString(QuoteLiteral(d, string(e)))
}

func (e IntLit) WriteSQL(b *Buffer, _ Dialect) {
	b.WriteString(strconv.FormatInt(int64(e), 10))
}

func (e FloatLit) WriteSQL(b *Buffer, _ Dialect) {
	b.WriteString(strconv.FormatFloat(float64(e), 'g', -1, 64))
}

func (e BoolLit) WriteSQL(b *Buffer, _ Dialect) {
	if e {
		b.WriteString("TRUE")
	} else {
		b.WriteString("FALSE")
	}
}

func (NullLit) WriteSQL(b *Buffer, _ Dialect) {
	b.WriteString("NULL")
}

func (e ColumnRef) WriteSQL(b *Buffer, d Dialect) {
	if e.Table != "" {
		b.WriteIdent(d, e.Table)
		b.WriteByte('.')
	}
	b.WriteIdent(d, e.Column)
}

func (e Func) WriteSQL(b *Buffer, d Dialect) {
	b.WriteString(e.Name)
	b.WriteByte('(')
	Join(b, d, e.Args, ", ")
	b.WriteByte(')')
}

func (e Binary) WriteSQL(b *Buffer, d Dialect) {
	writeOperand(b, d, e.Left)
	b.WriteByte(' ')
	b.WriteString(e.Op)
	b.WriteByte(' ')
	writeOperand(b, d, e.Right)
}

func (e Unary) WriteSQL(b *Buffer, d Dialect) {
	b.WriteString(e.Op)
	if strings.IndexFunc(e.Op, unicode.IsLetter) >= 0 {
		b.WriteByte(' ')
	}
	writeOperand(b, d, e.Expr)
}

// writeOperand parenthesizes nested operator expressions so precedence never
// depends on the surrounding context.
func writeOperand(b *Buffer, d Dialect, e Expr) {
	switch e.(type) {
	case Binary, Unary:
		b.WriteByte('(')
		e.WriteSQL(b, d)
		b.WriteByte(')')
	default:
		e.WriteSQL(b, d)
	}
}

// QuoteLiteral renders a string literal for the dialect.
func QuoteLiteral(d Dialect, s string) string {
	switch d {
	case Postgres:
		return pq.QuoteLiteral(s)
	case MySQL:
		s = strings.ReplaceAll(s, `\`, `\\`)
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	default:
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}

// ExprEqual reports whether two optional expressions render identically.
// Expressions holding identifiers that cannot be quoted are compared by value.
func ExprEqual(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(exprProblems(a)) > 0 || len(exprProblems(b)) > 0 {
		return reflect.DeepEqual(a, b)
	}
	return SQL(a, Postgres) == SQL(b, Postgres)
}

// exprProblems reports identifiers inside e that cannot be rendered.
func exprProblems(e Expr) []string {
	var out []string
	switch e := e.(type) {
	case ColumnRef:
		if e.Table != "" {
			if p := identifierProblem(e.Table); p != "" {
				out = append(out, p)
			}
		}
		if p := identifierProblem(e.Column); p != "" {
			out = append(out, p)
		}
	case Func:
		for _, arg := range e.Args {
			out = append(out, exprProblems(arg)...)
		}
	case Binary:
		out = append(out, exprProblems(e.Left)...)
		out = append(out, exprProblems(e.Right)...)
	case Unary:
		out = append(out, exprProblems(e.Expr)...)
	}
	return out
}
