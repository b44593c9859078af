package ir

import "strings"

// ToSQL is implemented by every node that can render itself as SQL text.
type ToSQL interface {
	WriteSQL(b *Buffer, d Dialect)
}

// Buffer accumulates rendered SQL.
type Buffer struct {
	strings.Builder
}

// SQL renders a single node to a string.
func SQL(node ToSQL, d Dialect) string {
	var b Buffer
	node.WriteSQL(&b, d)
	return b.String()
}

// WriteIdent writes a quoted identifier.
// It panics with *InvalidIdentifierError if the identifier contains the quote character.
func (b *Buffer) WriteIdent(d Dialect, identifier string) {
	b.WriteString(QuoteIdentifier(d, identifier))
}

// WriteTableName writes a possibly schema-qualified, quoted name.
func (b *Buffer) WriteTableName(d Dialect, schema, name string) {
	b.WriteString(QualifiedName(d, schema, name))
}

// WriteIdents writes quoted identifiers separated by sep.
func (b *Buffer) WriteIdents(d Dialect, identifiers []string, sep string) {
	for i, identifier := range identifiers {
		if i > 0 {
			b.WriteString(sep)
		}
		b.WriteIdent(d, identifier)
	}
}

// WriteNode renders a node into the buffer.
func (b *Buffer) WriteNode(node ToSQL, d Dialect) {
	node.WriteSQL(b, d)
}

// Join renders each node separated by sep.
func Join[T ToSQL](b *Buffer, d Dialect, nodes []T, sep string) {
	for i, node := range nodes {
		if i > 0 {
			b.WriteString(sep)
		}
		node.WriteSQL(b, d)
	}
}
