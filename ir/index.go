package ir

import (
	"regexp"
	"strings"
)

// IndexKind is the index access method.
type IndexKind string

const (
	IndexBTree  IndexKind = "btree"
	IndexHash   IndexKind = "hash"
	IndexGist   IndexKind = "gist"
	IndexSpGist IndexKind = "spgist"
	IndexBrin   IndexKind = "brin"
)

var indexMethodName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ParseIndexKind normalizes an access method name. An empty name is BTree and
// unknown names are kept as an Other kind.
func ParseIndexKind(s string) IndexKind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return IndexBTree
	}
	return IndexKind(s)
}

// OtherIndexKind returns an access method without a dedicated constant, such as gin.
func OtherIndexKind(raw string) IndexKind {
	return ParseIndexKind(raw)
}

// IsOther reports whether the kind has no dedicated constant.
func (k IndexKind) IsOther() bool {
	switch k {
	case "", IndexBTree, IndexHash, IndexGist, IndexSpGist, IndexBrin:
		return false
	}
	return true
}

// Index is a secondary index. It is identified by name within its table's schema.
type Index struct {
	Name    string
	Unique  bool
	Schema  string
	Table   string
	Columns []string
	Kind    IndexKind
}

// NewIndex returns a non-unique btree index. Table.AddIndex fills in the owner.
func NewIndex(name string, columns ...string) Index {
	return Index{Name: name, Columns: columns, Kind: IndexBTree}
}

func (i Index) AsUnique() Index {
	i.Unique = true
	return i
}

func (i Index) Using(k IndexKind) Index {
	i.Kind = k
	return i
}

// EffectiveKind treats an unset kind as BTree.
func (i Index) EffectiveKind() IndexKind {
	if i.Kind == "" {
		return IndexBTree
	}
	return i.Kind
}

// SameDefinition reports whether two indexes have the same columns, uniqueness and kind.
func (i Index) SameDefinition(o Index) bool {
	if i.Unique != o.Unique || i.EffectiveKind() != o.EffectiveKind() || len(i.Columns) != len(o.Columns) {
		return false
	}
	for n := range i.Columns {
		if i.Columns[n] != o.Columns[n] {
			return false
		}
	}
	return true
}

// WriteSQL renders CREATE [UNIQUE] INDEX. The access method is omitted for btree.
func (i Index) WriteSQL(b *Buffer, d Dialect) {
	b.WriteString("CREATE ")
	if i.Unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if d == SQLite {
		b.WriteTableName(d, i.Schema, i.Name)
		b.WriteString(" ON ")
		b.WriteIdent(d, i.Table)
	} else {
		b.WriteIdent(d, i.Name)
		b.WriteString(" ON ")
		b.WriteTableName(d, i.Schema, i.Table)
	}
	kind := i.EffectiveKind()
	if d == Postgres && kind != IndexBTree {
		b.WriteString(" USING ")
		b.WriteString(string(kind))
	}
	b.WriteString(" (")
	b.WriteIdents(d, i.Columns, ", ")
	b.WriteByte(')')
	if d == MySQL && kind != IndexBTree {
		b.WriteString(" USING ")
		b.WriteString(strings.ToUpper(string(kind)))
	}
}

// WriteDrop renders DROP INDEX. MySQL requires the owning table.
func (i Index) WriteDrop(b *Buffer, d Dialect) {
	b.WriteString("DROP INDEX ")
	if d == MySQL {
		b.WriteIdent(d, i.Name)
		b.WriteString(" ON ")
		b.WriteTableName(d, i.Schema, i.Table)
		return
	}
	b.WriteTableName(d, i.Schema, i.Name)
}

func (i Index) problems() []string {
	var out []string
	if p := identifierProblem(i.Name); p != "" {
		out = append(out, p)
	}
	if len(i.Columns) == 0 {
		out = append(out, "index "+i.Name+" has no columns")
	}
	for _, c := range i.Columns {
		if p := identifierProblem(c); p != "" {
			out = append(out, p)
		}
	}
	if i.Kind.IsOther() && !indexMethodName.MatchString(string(i.Kind)) {
		out = append(out, "index "+i.Name+" has invalid access method "+string(i.Kind))
	}
	return out
}
