package ir

import (
	"fmt"
	"strings"
)

// Dialect selects the SQL flavour a node is rendered for.
type Dialect int

const (
	Postgres Dialect = iota
	MySQL
	SQLite
)

// Dialects lists every supported dialect in declaration order.
var Dialects = []Dialect{Postgres, MySQL, SQLite}

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case MySQL:
		return "mysql"
	case SQLite:
		return "sqlite"
	default:
		return fmt.Sprintf("Dialect(%d)", int(d))
	}
}

// ParseDialect resolves a dialect name as accepted on the command line.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg", "":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return Postgres, fmt.Errorf("unknown dialect %q (expected postgres, mysql or sqlite)", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Dialect) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dialect) UnmarshalText(text []byte) error {
	parsed, err := ParseDialect(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// QuoteChar returns the character used to delimit identifiers.
func (d Dialect) QuoteChar() byte {
	if d == MySQL {
		return '`'
	}
	return '"'
}

// SupportsArrays reports whether array column types exist in the dialect.
func (d Dialect) SupportsArrays() bool {
	return d == Postgres
}

// SupportsJSONB reports whether the binary JSON type exists in the dialect.
func (d Dialect) SupportsJSONB() bool {
	return d == Postgres
}

// SupportsIndexKind reports whether an index access method can be requested.
func (d Dialect) SupportsIndexKind(k IndexKind) bool {
	switch d {
	case Postgres:
		return true
	case MySQL:
		return k == IndexBTree || k == IndexHash
	default:
		return k == IndexBTree
	}
}

// SupportsAlterColumn reports whether an existing column's type, nullability or
// default can be changed in place.
func (d Dialect) SupportsAlterColumn() bool {
	return d != SQLite
}

// SupportsAlterConstraint reports whether constraints can be added to or dropped
// from an existing table.
func (d Dialect) SupportsAlterConstraint() bool {
	return d != SQLite
}

// SupportsMultipleAlterClauses reports whether one ALTER TABLE statement may carry
// several comma-separated clauses.
func (d Dialect) SupportsMultipleAlterClauses() bool {
	return d != SQLite
}

// SupportsEmptyTables reports whether CREATE TABLE accepts an empty column list.
func (d Dialect) SupportsEmptyTables() bool {
	return d == Postgres
}

// InlineForeignKeys reports whether a column-level REFERENCES clause is honoured.
// MySQL parses and silently discards it, so foreign keys are emitted at table level.
func (d Dialect) InlineForeignKeys() bool {
	return d != MySQL
}
