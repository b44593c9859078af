// Package normalize rewrites PostgreSQL expression text into the form the
// PostgreSQL deparser produces, so that catalog output and parsed DDL compare
// equal when the engine diffs them.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/pgschema/sqlschema/ir"
)

// redundantNumericCast matches numeric literals carrying a cast to a numeric type,
// e.g. 0::numeric or 123::integer.
var redundantNumericCast = regexp.MustCompile(`\b(\d+(?:\.\d+)?)::(?:numeric|integer|bigint|smallint|decimal|real|double precision)\b`)

// castLiteral matches a quoted literal followed by a type cast, as stored in
// pg_attrdef: 'active'::text, 'a”b'::character varying, '{}'::text[].
var castLiteral = regexp.MustCompile(`^'((?:[^']|'')*)'::([a-zA-Z_][\w\s."]*(?:\(\d+(?:,\s*\d+)?\))?(?:\[\])*)$`)

var numberLiteral = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)

var numericTypes = map[string]bool{
	"smallint": true, "integer": true, "bigint": true, "numeric": true,
	"real": true, "double precision": true, "decimal": true,
}

// Expr returns the deparsed form of a scalar expression. Text that does not
// parse is returned trimmed but otherwise unchanged.
func Expr(expr string) string {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return expr
	}

	tree, err := pg_query.Parse("SELECT " + expr)
	if err != nil {
		return expr
	}
	deparsed, err := pg_query.Deparse(tree)
	if err != nil {
		return expr
	}
	after, ok := strings.CutPrefix(deparsed, "SELECT ")
	if !ok {
		return expr
	}
	return redundantNumericCast.ReplaceAllString(strings.TrimSpace(after), "$1")
}

// Node deparses a single expression node from a parse tree.
func Node(node *pg_query.Node) (string, error) {
	stmt := &pg_query.SelectStmt{
		TargetList: []*pg_query.Node{{
			Node: &pg_query.Node_ResTarget{ResTarget: &pg_query.ResTarget{Val: node}},
		}},
		Op:          pg_query.SetOperation_SETOP_NONE,
		LimitOption: pg_query.LimitOption_LIMIT_OPTION_DEFAULT,
	}
	tree := &pg_query.ParseResult{Stmts: []*pg_query.RawStmt{{
		Stmt: &pg_query.Node{Node: &pg_query.Node_SelectStmt{SelectStmt: stmt}},
	}}}
	deparsed, err := pg_query.Deparse(tree)
	if err != nil {
		return "", err
	}
	return redundantNumericCast.ReplaceAllString(strings.TrimSpace(strings.TrimPrefix(deparsed, "SELECT ")), "$1"), nil
}

// Default converts a column default as PostgreSQL reports it into an expression.
// Literal casts are removed so 'x'::text compares equal to the string literal x.
func Default(value string) ir.Expr {
	value = strings.TrimSpace(value)
	upper := strings.ToUpper(value)
	switch {
	case upper == "NULL" || strings.HasPrefix(upper, "NULL::"):
		return ir.NullLit{}
	case upper == "TRUE":
		return ir.BoolLit(true)
	case upper == "FALSE":
		return ir.BoolLit(false)
	}

	if m := castLiteral.FindStringSubmatch(value); m != nil {
		content := strings.ReplaceAll(m[1], "''", "'")
		typeName := strings.Join(strings.Fields(strings.ToLower(m[2])), " ")
		if numericTypes[typeName] && isNumber(content) {
			return ir.Raw(content)
		}
		if typeName == "boolean" {
			if b, err := strconv.ParseBool(content); err == nil {
				return ir.BoolLit(b)
			}
		}
		return ir.StringLit(content)
	}
	return ir.Raw(Expr(value))
}

func isNumber(s string) bool {
	return numberLiteral.MatchString(s)
}
