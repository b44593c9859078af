package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pgschema/sqlschema/internal/normalize"
	"github.com/pgschema/sqlschema/ir"
)

// Document is the YAML and JSON form of a schema. Defaults, checks and
// generation expressions are SQL text in the document's dialect.
type Document struct {
	Tables []TableDoc `yaml:"tables" json:"tables"`
}

type TableDoc struct {
	Schema  string      `yaml:"schema,omitempty" json:"schema,omitempty"`
	Name    string      `yaml:"name" json:"name"`
	Columns []ColumnDoc `yaml:"columns,omitempty" json:"columns,omitempty"`
	Indexes []IndexDoc  `yaml:"indexes,omitempty" json:"indexes,omitempty"`
}

// ColumnDoc describes a column. Nullable defaults to true. At most one of
// References, Unique and Check may be set; ConstraintName names it.
type ColumnDoc struct {
	Name           string        `yaml:"name" json:"name"`
	Type           string        `yaml:"type" json:"type"`
	Nullable       *bool         `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	PrimaryKey     bool          `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	Default        *string       `yaml:"default,omitempty" json:"default,omitempty"`
	Generated      *GeneratedDoc `yaml:"generated,omitempty" json:"generated,omitempty"`
	References     *ReferenceDoc `yaml:"references,omitempty" json:"references,omitempty"`
	Unique         bool          `yaml:"unique,omitempty" json:"unique,omitempty"`
	Check          string        `yaml:"check,omitempty" json:"check,omitempty"`
	ConstraintName string        `yaml:"constraint_name,omitempty" json:"constraint_name,omitempty"`
}

// GeneratedDoc is either an identity (Identity true) or a stored expression.
// Time is "always" or "by default".
type GeneratedDoc struct {
	Time     string `yaml:"time,omitempty" json:"time,omitempty"`
	Identity bool   `yaml:"identity,omitempty" json:"identity,omitempty"`
	Expr     string `yaml:"expr,omitempty" json:"expr,omitempty"`
}

type ReferenceDoc struct {
	Schema   string   `yaml:"schema,omitempty" json:"schema,omitempty"`
	Table    string   `yaml:"table" json:"table"`
	Columns  []string `yaml:"columns" json:"columns"`
	OnDelete string   `yaml:"on_delete,omitempty" json:"on_delete,omitempty"`
	OnUpdate string   `yaml:"on_update,omitempty" json:"on_update,omitempty"`
}

type IndexDoc struct {
	Name    string   `yaml:"name" json:"name"`
	Unique  bool     `yaml:"unique,omitempty" json:"unique,omitempty"`
	Columns []string `yaml:"columns" json:"columns"`
	Kind    string   `yaml:"kind,omitempty" json:"kind,omitempty"`
}

// ParseYAML decodes a schema document. JSON documents are accepted as well.
// Unknown fields are rejected.
func ParseYAML(data []byte, d ir.Dialect) (ir.Schema, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return ir.Schema{}, fmt.Errorf("failed to decode schema document: %w", err)
	}
	return doc.Schema(d)
}

// Schema converts the document into a schema.
func (doc Document) Schema(d ir.Dialect) (ir.Schema, error) {
	var s ir.Schema
	for _, td := range doc.Tables {
		if td.Name == "" {
			return ir.Schema{}, fmt.Errorf("table without a name")
		}
		t := ir.NewTable(td.Name).InSchema(td.Schema)
		for _, cd := range td.Columns {
			col, err := cd.column(d)
			if err != nil {
				return ir.Schema{}, fmt.Errorf("table %s column %s: %w", t.Key(), cd.Name, err)
			}
			t = t.AddColumn(col)
		}
		for _, id := range td.Indexes {
			idx := ir.NewIndex(id.Name, id.Columns...).Using(ir.ParseIndexKind(id.Kind))
			idx.Unique = id.Unique
			t = t.AddIndex(idx)
		}
		s = s.AddTable(t)
	}
	return s, nil
}

func (cd ColumnDoc) column(d ir.Dialect) (ir.Column, error) {
	typ, err := ir.ParseType(d, cd.Type)
	if err != nil {
		return ir.Column{}, err
	}
	col := ir.NewColumn(cd.Name, typ)
	if cd.Nullable != nil {
		col.Nullable = *cd.Nullable
	}
	if cd.PrimaryKey {
		col = col.AsPrimaryKey()
	}
	if cd.Default != nil {
		col.Default = parseDefault(*cd.Default, d)
	}

	if g := cd.Generated; g != nil {
		when, err := parseGeneratedTime(g.Time)
		if err != nil {
			return ir.Column{}, err
		}
		switch {
		case g.Identity && g.Expr != "":
			return ir.Column{}, fmt.Errorf("generated column is either identity or expression")
		case g.Identity:
			col.Generated = ir.Identity(when)
			col.Nullable = false
		case g.Expr != "":
			col.Generated = &ir.Generated{Time: when, Expr: ir.Raw(expression(g.Expr, d))}
		default:
			return ir.Column{}, fmt.Errorf("generated column needs identity or expr")
		}
	}

	var constraints []ir.Constraint
	if r := cd.References; r != nil {
		constraints = append(constraints, ir.ForeignKey{
			Name:     cd.ConstraintName,
			Schema:   r.Schema,
			Table:    r.Table,
			Columns:  r.Columns,
			OnDelete: ir.ParseReferentialAction(r.OnDelete),
			OnUpdate: ir.ParseReferentialAction(r.OnUpdate),
		})
	}
	if cd.Unique {
		constraints = append(constraints, ir.Unique{Name: cd.ConstraintName})
	}
	if cd.Check != "" {
		constraints = append(constraints, ir.Check{Name: cd.ConstraintName, Expr: ir.Raw(expression(cd.Check, d))})
	}
	switch len(constraints) {
	case 0:
	case 1:
		col.Constraint = constraints[0]
	default:
		return ir.Column{}, fmt.Errorf("at most one of references, unique and check may be set")
	}
	return col, nil
}

func parseGeneratedTime(s string) (ir.GeneratedTime, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), " ")) {
	case "", "always":
		return ir.Always, nil
	case "by default", "by_default":
		return ir.ByDefault, nil
	default:
		return 0, fmt.Errorf("unknown generation time %q", s)
	}
}

func parseDefault(text string, d ir.Dialect) ir.Expr {
	if d == ir.Postgres {
		return normalize.Default(text)
	}
	if strings.EqualFold(strings.TrimSpace(text), "NULL") {
		return ir.NullLit{}
	}
	return ir.Raw(strings.TrimSpace(text))
}

func expression(text string, d ir.Dialect) string {
	if d == ir.Postgres {
		return normalize.Expr(text)
	}
	return strings.TrimSpace(text)
}

// FromSchema converts a schema into its document form, rendering types and
// expressions in dialect d.
func FromSchema(s ir.Schema, d ir.Dialect) Document {
	doc := Document{Tables: make([]TableDoc, 0, len(s.Tables))}
	for _, t := range s.Tables {
		td := TableDoc{Schema: t.Schema, Name: t.Name}
		for _, c := range t.Columns {
			td.Columns = append(td.Columns, columnDoc(c, d))
		}
		for _, idx := range t.Indexes {
			id := IndexDoc{Name: idx.Name, Unique: idx.Unique, Columns: idx.Columns}
			if k := idx.EffectiveKind(); k != ir.IndexBTree {
				id.Kind = string(k)
			}
			td.Indexes = append(td.Indexes, id)
		}
		doc.Tables = append(doc.Tables, td)
	}
	return doc
}

func columnDoc(c ir.Column, d ir.Dialect) ColumnDoc {
	cd := ColumnDoc{Name: c.Name, Type: c.Type.SQL(d), PrimaryKey: c.PrimaryKey}
	if !c.IsNullable() && !c.PrimaryKey && !c.Generated.IsIdentity() {
		notNull := false
		cd.Nullable = &notNull
	}
	if c.Default != nil {
		text := ir.SQL(c.Default, d)
		cd.Default = &text
	}
	if g := c.Generated; g != nil {
		gd := &GeneratedDoc{Identity: g.IsIdentity()}
		if g.Time == ir.ByDefault {
			gd.Time = "by default"
		}
		if g.IsStored() {
			gd.Expr = ir.SQL(g.Expr, d)
		}
		cd.Generated = gd
	}
	switch con := c.Constraint.(type) {
	case ir.ForeignKey:
		cd.ConstraintName = con.Name
		cd.References = &ReferenceDoc{
			Schema:   con.Schema,
			Table:    con.Table,
			Columns:  con.Columns,
			OnDelete: string(con.OnDelete),
			OnUpdate: string(con.OnUpdate),
		}
	case ir.Unique:
		cd.ConstraintName = con.Name
		cd.Unique = true
	case ir.Check:
		cd.ConstraintName = con.Name
		if con.Expr != nil {
			cd.Check = ir.SQL(con.Expr, d)
		}
	}
	return cd
}

// MarshalYAML renders the schema as a YAML document.
func MarshalYAML(s ir.Schema, d ir.Dialect) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(FromSchema(s, d)); err != nil {
		return nil, fmt.Errorf("failed to encode schema document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON renders the schema as an indented JSON document.
func MarshalJSON(s ir.Schema, d ir.Dialect) ([]byte, error) {
	return json.MarshalIndent(FromSchema(s, d), "", "  ")
}
