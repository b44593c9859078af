package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/sqlschema/ir"
)

func TestDefault(t *testing.T) {
	tests := []struct {
		input    string
		expected ir.Expr
	}{
		{"'active'::text", ir.StringLit("active")},
		{"'it''s'::character varying", ir.StringLit("it's")},
		{"'{}'::text[]", ir.StringLit("{}")},
		{"'42'::integer", ir.Raw("42")},
		{"'-1.5'::numeric", ir.Raw("-1.5")},
		{"'t'::boolean", ir.BoolLit(true)},
		{"NULL::text", ir.NullLit{}},
		{"NULL", ir.NullLit{}},
		{"true", ir.BoolLit(true)},
		{"FALSE", ir.BoolLit(false)},
		{"0", ir.Raw("0")},
		{"now()", ir.Raw("now()")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if diff := cmp.Diff(tt.expected, Default(tt.input)); diff != "" {
				t.Errorf("Default(%q) mismatch (-want +got):\n%s", tt.input, diff)
			}
		})
	}
}

func TestExpr(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"(quantity > 0)", "quantity > 0"},
		{"  now()  ", "now()"},
		{"0::numeric", "0"},
		{"not a valid (", "not a valid ("},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Expr(tt.input); got != tt.expected {
				t.Errorf("Expr(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestExprMatchesCatalogAndSourceSpellings(t *testing.T) {
	catalog := Expr(`((price * (quantity)::numeric))`)
	source := Expr(`price * quantity::numeric`)
	if catalog != source {
		t.Errorf("catalog form %q differs from source form %q", catalog, source)
	}
}
