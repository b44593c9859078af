package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// TypeKind identifies a column type variant.
type TypeKind int

const (
	KindBool TypeKind = iota + 1
	KindInt16
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindNumeric
	KindText
	KindBytes
	KindDate
	KindTime
	KindTimestamp
	KindTimestampTz
	KindUUID
	KindJSON
	KindJSONB
	KindArray
	KindOther
)

// Type is a column type. Numeric carries precision and scale, Array carries its
// element type and Other carries a dialect-native spelling that is passed through verbatim.
type Type struct {
	Kind      TypeKind `json:"kind"`
	Precision uint8    `json:"precision,omitempty"`
	Scale     uint8    `json:"scale,omitempty"`
	Elem      *Type    `json:"elem,omitempty"`
	Raw       string   `json:"raw,omitempty"`
}

var (
	Bool        = Type{Kind: KindBool}
	Int16       = Type{Kind: KindInt16}
	Int32       = Type{Kind: KindInt32}
	Int64       = Type{Kind: KindInt64}
	Float32     = Type{Kind: KindFloat32}
	Float64     = Type{Kind: KindFloat64}
	Text        = Type{Kind: KindText}
	Bytes       = Type{Kind: KindBytes}
	Date        = Type{Kind: KindDate}
	Time        = Type{Kind: KindTime}
	Timestamp   = Type{Kind: KindTimestamp}
	TimestampTz = Type{Kind: KindTimestampTz}
	UUID        = Type{Kind: KindUUID}
	JSON        = Type{Kind: KindJSON}
	JSONB       = Type{Kind: KindJSONB}
)

// Numeric returns an exact numeric type. Numeric(0, 0) is an unconstrained NUMERIC.
func Numeric(precision, scale uint8) Type {
	return Type{Kind: KindNumeric, Precision: precision, Scale: scale}
}

// Array returns an array of elem.
func Array(elem Type) Type {
	return Type{Kind: KindArray, Elem: &elem}
}

// Other returns a type that is rendered exactly as written.
func Other(raw string) Type {
	return Type{Kind: KindOther, Raw: raw}
}

// Equal reports whether two types denote the same column type.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case KindNumeric:
		return t.Precision == o.Precision && t.Scale == o.Scale
	case KindArray:
		if t.Elem == nil || o.Elem == nil {
			return t.Elem == o.Elem
		}
		return t.Elem.Equal(*o.Elem)
	case KindOther:
		return canonicalRawType(t.Raw) == canonicalRawType(o.Raw)
	}
	return true
}

// WriteSQL renders the dialect spelling of the type.
func (t Type) WriteSQL(b *Buffer, d Dialect) {
	switch t.Kind {
	case KindNumeric:
		name := "NUMERIC"
		if d == MySQL {
			name = "DECIMAL"
		}
		b.WriteString(name)
		if t.Precision > 0 || t.Scale > 0 {
			fmt.Fprintf(b, "(%d,%d)", t.Precision, t.Scale)
		}
	case KindArray:
		if t.Elem != nil {
			t.Elem.WriteSQL(b, d)
		}
		b.WriteString("[]")
	case KindOther:
		b.WriteString(t.Raw)
	default:
		b.WriteString(scalarName(t.Kind, d))
	}
}

// SQL returns the dialect spelling of the type.
func (t Type) SQL(d Dialect) string {
	return SQL(t, d)
}

func (t Type) String() string {
	return t.SQL(Postgres)
}

func scalarName(k TypeKind, d Dialect) string {
	switch k {
	case KindBool:
		if d == MySQL {
			return "TINYINT(1)"
		}
		return "BOOLEAN"
	case KindInt16:
		return "SMALLINT"
	case KindInt32:
		if d == Postgres {
			return "INTEGER"
		}
		return "INT"
	case KindInt64:
		if d == SQLite {
			return "INTEGER"
		}
		return "BIGINT"
	case KindFloat32:
		if d == Postgres {
			return "REAL"
		}
		return "FLOAT"
	case KindFloat64:
		if d == Postgres {
			return "DOUBLE PRECISION"
		}
		return "DOUBLE"
	case KindText:
		return "TEXT"
	case KindBytes:
		if d == Postgres {
			return "BYTEA"
		}
		return "BLOB"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	case KindTimestamp:
		if d == MySQL {
			return "DATETIME"
		}
		return "TIMESTAMP"
	case KindTimestampTz:
		if d == MySQL {
			return "TIMESTAMP"
		}
		return "TIMESTAMPTZ"
	case KindUUID:
		if d == MySQL {
			return "CHAR(36)"
		}
		return "UUID"
	case KindJSON:
		return "JSON"
	case KindJSONB:
		return "JSONB"
	default:
		return fmt.Sprintf("<invalid type kind %d>", int(k))
	}
}

// UnsupportedIn names the part of the type the dialect cannot represent, or
// returns "" when the type renders natively.
func (t Type) UnsupportedIn(d Dialect) string {
	switch t.Kind {
	case KindArray:
		if !d.SupportsArrays() {
			return "array type " + t.String()
		}
		if t.Elem != nil {
			return t.Elem.UnsupportedIn(d)
		}
	case KindJSONB:
		if !d.SupportsJSONB() {
			return "JSONB type"
		}
	}
	return ""
}

func (t Type) problems() []string {
	switch t.Kind {
	case 0:
		return []string{"missing type"}
	case KindNumeric:
		if t.Scale > t.Precision {
			return []string{fmt.Sprintf("numeric scale %d exceeds precision %d", t.Scale, t.Precision)}
		}
	case KindArray:
		if t.Elem == nil {
			return []string{"array type without element type"}
		}
		return t.Elem.problems()
	case KindOther:
		if strings.TrimSpace(t.Raw) == "" {
			return []string{"empty raw type"}
		}
	}
	return nil
}

var commonTypeNames = map[string]Type{
	"bool":                        Bool,
	"boolean":                     Bool,
	"smallint":                    Int16,
	"int2":                        Int16,
	"integer":                     Int32,
	"int":                         Int32,
	"int4":                        Int32,
	"bigint":                      Int64,
	"int8":                        Int64,
	"real":                        Float32,
	"float4":                      Float32,
	"double precision":            Float64,
	"float8":                      Float64,
	"double":                      Float64,
	"numeric":                     Numeric(0, 0),
	"decimal":                     Numeric(0, 0),
	"text":                        Text,
	"bytea":                       Bytes,
	"blob":                        Bytes,
	"date":                        Date,
	"time":                        Time,
	"time without time zone":      Time,
	"timestamp":                   Timestamp,
	"timestamp without time zone": Timestamp,
	"timestamptz":                 TimestampTz,
	"timestamp with time zone":    TimestampTz,
	"uuid":                        UUID,
	"json":                        JSON,
	"jsonb":                       JSONB,
}

var dialectTypeNames = map[Dialect]map[string]Type{
	Postgres: {
		"float": Float64,
	},
	MySQL: {
		"float":     Float32,
		"real":      Float64,
		"datetime":  Timestamp,
		"timestamp": TimestampTz,
	},
	SQLite: {
		"integer": Int64,
		"float":   Float32,
		"real":    Float64,
	},
}

// knownUnmodelled lists built-in names that have no dedicated variant. They
// parse to Other so introspected catalogs round-trip.
var knownUnmodelled = map[string]bool{
	"character varying": true, "varchar": true, "character": true, "char": true,
	"bpchar": true, "name": true, "citext": true, "inet": true, "cidr": true,
	"macaddr": true, "interval": true, "money": true, "xml": true, "tsvector": true,
	"tsquery": true, "oid": true, "point": true, "bit": true, "bit varying": true,
	"varbit": true, "tinyint": true, "mediumint": true, "tinytext": true,
	"mediumtext": true, "longtext": true, "tinyblob": true, "mediumblob": true,
	"longblob": true, "binary": true, "varbinary": true, "year": true,
	"timetz": true, "time with time zone": true, "hstore": true, "ltree": true,
	"daterange": true, "tstzrange": true, "tsrange": true, "int4range": true,
	"int8range": true, "numrange": true, "nvarchar": true, "nchar": true,
	"clob": true, "datetime": true, "serial": true, "bigserial": true,
	"smallserial": true,
}

// temporalBase lists types whose parameter is a fractional-seconds precision.
var temporalBase = map[string]bool{"timestamp": true, "timestamptz": true, "time": true, "timetz": true}

var parametricType = regexp.MustCompile(`^([a-z][a-z0-9_ ]*?)\s*\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\)\s*(.*)$`)

// ParseType parses a dialect-native type name. Names are matched
// case-insensitively; "T[]" and the Postgres "_T" element notation produce arrays.
func ParseType(d Dialect, name string) (Type, error) {
	raw := strings.TrimSpace(name)
	s := normalizeTypeName(raw)
	if s == "" {
		return Type{}, &ParseError{Dialect: d, Input: name, Reason: "empty type name"}
	}

	if strings.HasSuffix(s, "[]") {
		inner, err := ParseType(d, strings.TrimSuffix(raw, "[]"))
		if err != nil {
			return Type{}, err
		}
		return Array(inner), nil
	}
	if d == Postgres && strings.HasPrefix(s, "_") {
		inner, err := ParseType(d, raw[1:])
		if err != nil {
			return Type{}, err
		}
		return Array(inner), nil
	}

	if m := parametricType.FindStringSubmatch(s); m != nil {
		return parseParametric(d, raw, m)
	}

	if t, ok := dialectTypeNames[d][s]; ok {
		return t, nil
	}
	if t, ok := commonTypeNames[s]; ok {
		return t, nil
	}
	if knownUnmodelled[s] || (d == MySQL && isMySQLModifierForm(s)) {
		return Other(raw), nil
	}
	return Type{}, &ParseError{Dialect: d, Input: name, Reason: "unknown type name"}
}

func parseParametric(d Dialect, raw string, m []string) (Type, error) {
	base, rest := m[1], m[4]
	p, err := strconv.ParseUint(m[2], 10, 8)
	if err != nil {
		return Type{}, &ParseError{Dialect: d, Input: raw, Reason: "precision out of range"}
	}
	var scale uint64
	if m[3] != "" {
		if scale, err = strconv.ParseUint(m[3], 10, 8); err != nil {
			return Type{}, &ParseError{Dialect: d, Input: raw, Reason: "scale out of range"}
		}
	}
	if rest != "" {
		if d == MySQL && isMySQLModifierForm(rest) {
			return Other(raw), nil
		}
		if knownUnmodelled[base+" "+rest] || knownUnmodelled[base] || temporalBase[base] {
			return Other(raw), nil
		}
		return Type{}, &ParseError{Dialect: d, Input: raw, Reason: fmt.Sprintf("unexpected %q after type parameters", rest)}
	}

	switch base {
	case "numeric", "decimal":
		return Numeric(uint8(p), uint8(scale)), nil
	case "tinyint":
		if d == MySQL && p == 1 {
			return Bool, nil
		}
	case "char", "character":
		if d == MySQL && p == 36 {
			return UUID, nil
		}
	case "smallint", "int", "integer", "bigint":
		if d == MySQL {
			return ParseType(d, base)
		}
	}
	if knownUnmodelled[base] || temporalBase[base] || base == "float" {
		return Other(raw), nil
	}
	return Type{}, &ParseError{Dialect: d, Input: raw, Reason: "unknown parametric type"}
}

func isMySQLModifierForm(s string) bool {
	return strings.HasSuffix(s, "unsigned") || strings.HasSuffix(s, "zerofill") ||
		strings.HasPrefix(s, "enum(") || strings.HasPrefix(s, "set(")
}

func normalizeTypeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

var rawTypeAliases = map[string]string{
	"varchar": "character varying",
	"char":    "character",
	"bpchar":  "character",
	"timetz":  "time with time zone",
}

// canonicalRawType folds spelling differences of pass-through types.
func canonicalRawType(raw string) string {
	s := normalizeTypeName(raw)
	s = strings.ReplaceAll(s, " (", "(")
	base, params, hasParams := strings.Cut(s, "(")
	if alias, ok := rawTypeAliases[base]; ok {
		base = alias
	}
	if hasParams {
		return base + "(" + strings.ReplaceAll(params, " ", "")
	}
	return base
}
