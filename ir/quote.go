package ir

import (
	"fmt"
	"strings"
)

// InvalidIdentifierError is the panic value raised when an identifier cannot be
// quoted for a dialect. It signals a programming error: Schema.Validate reports
// the same condition as an ordinary error before rendering starts.
type InvalidIdentifierError struct {
	Identifier string
	Dialect    Dialect
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("identifier %q contains the %s quote character %q", e.Identifier, e.Dialect, string(e.Dialect.QuoteChar()))
}

// QuoteIdentifier wraps an identifier in the dialect's quote character.
// It panics with *InvalidIdentifierError if the identifier contains that character.
func QuoteIdentifier(d Dialect, identifier string) string {
	q := d.QuoteChar()
	if strings.IndexByte(identifier, q) >= 0 {
		panic(&InvalidIdentifierError{Identifier: identifier, Dialect: d})
	}
	return string(q) + identifier + string(q)
}

// QualifiedName returns the quoted "schema"."name" pair, omitting the schema when empty.
func QualifiedName(d Dialect, schema, name string) string {
	if schema == "" {
		return QuoteIdentifier(d, name)
	}
	return QuoteIdentifier(d, schema) + "." + QuoteIdentifier(d, name)
}

// identifierProblem reports why an identifier cannot be rendered in every dialect.
func identifierProblem(identifier string) string {
	if identifier == "" {
		return "empty identifier"
	}
	for _, d := range Dialects {
		if strings.IndexByte(identifier, d.QuoteChar()) >= 0 {
			return fmt.Sprintf("identifier %q contains the %s quote character", identifier, d)
		}
	}
	return ""
}
