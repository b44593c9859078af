package ir

// GeneratedTime selects when a generated value is produced.
type GeneratedTime int

const (
	Always GeneratedTime = iota
	ByDefault
)

func (t GeneratedTime) String() string {
	if t == ByDefault {
		return "BY DEFAULT"
	}
	return "ALWAYS"
}

// Generated describes an identity column (Expr == nil) or a stored computed column.
type Generated struct {
	Time GeneratedTime
	Expr Expr
}

// Identity returns an identity generation.
func Identity(t GeneratedTime) *Generated {
	return &Generated{Time: t}
}

// Stored returns a stored generated column computed from e.
func Stored(e Expr) *Generated {
	return &Generated{Time: Always, Expr: e}
}

// IsIdentity reports whether the column is an identity column.
func (g *Generated) IsIdentity() bool {
	return g != nil && g.Expr == nil
}

// IsStored reports whether the column is computed from an expression.
func (g *Generated) IsStored() bool {
	return g != nil && g.Expr != nil
}

// WriteSQL renders the generation clause. MySQL spells identity as AUTO_INCREMENT
// and SQLite as AUTOINCREMENT, which is only valid directly after PRIMARY KEY.
func (g *Generated) WriteSQL(b *Buffer, d Dialect) {
	if g.Expr == nil {
		switch d {
		case MySQL:
			b.WriteString("AUTO_INCREMENT")
		case SQLite:
			b.WriteString("AUTOINCREMENT")
		default:
			b.WriteString("GENERATED ")
			b.WriteString(g.Time.String())
			b.WriteString(" AS IDENTITY")
		}
		return
	}
	b.WriteString("GENERATED ALWAYS AS (")
	g.Expr.WriteSQL(b, d)
	b.WriteString(") STORED")
}

// GeneratedEqual reports whether two optional generation clauses are the same.
func GeneratedEqual(a, b *Generated) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.IsIdentity() != b.IsIdentity() {
		return false
	}
	if a.IsIdentity() {
		return a.Time == b.Time
	}
	return ExprEqual(a.Expr, b.Expr)
}
