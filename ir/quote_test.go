package ir

import (
	"errors"
	"testing"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		name       string
		dialect    Dialect
		identifier string
		expected   string
	}{
		{"postgres plain", Postgres, "users", `"users"`},
		{"postgres reserved word", Postgres, "user", `"user"`},
		{"postgres mixed case", Postgres, "MyApp", `"MyApp"`},
		{"postgres backtick allowed", Postgres, "a`b", "\"a`b\""},
		{"mysql plain", MySQL, "users", "`users`"},
		{"mysql double quote allowed", MySQL, `a"b`, "`a\"b`"},
		{"sqlite plain", SQLite, "order_items", `"order_items"`},
		{"empty", Postgres, "", `""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteIdentifier(tt.dialect, tt.identifier); got != tt.expected {
				t.Errorf("QuoteIdentifier(%s, %q) = %s; want %s", tt.dialect, tt.identifier, got, tt.expected)
			}
		})
	}
}

func TestQuoteIdentifierPanicsOnQuoteChar(t *testing.T) {
	tests := []struct {
		dialect    Dialect
		identifier string
	}{
		{Postgres, `bad"name`},
		{SQLite, `"`},
		{MySQL, "bad`name"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			defer func() {
				r := recover()
				if r == nil {
					t.Fatalf("QuoteIdentifier(%s, %q) did not panic", tt.dialect, tt.identifier)
				}
				err, ok := r.(error)
				if !ok {
					t.Fatalf("panic value %v is not an error", r)
				}
				var invalid *InvalidIdentifierError
				if !errors.As(err, &invalid) {
					t.Fatalf("panic value %T is not *InvalidIdentifierError", r)
				}
				if invalid.Identifier != tt.identifier {
					t.Errorf("Identifier = %q; want %q", invalid.Identifier, tt.identifier)
				}
			}()
			QuoteIdentifier(tt.dialect, tt.identifier)
		})
	}
}

func TestQualifiedName(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		schema   string
		table    string
		expected string
	}{
		{"with schema", Postgres, "public", "users", `"public"."users"`},
		{"without schema", Postgres, "", "users", `"users"`},
		{"mysql with schema", MySQL, "app", "users", "`app`.`users`"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualifiedName(tt.dialect, tt.schema, tt.table); got != tt.expected {
				t.Errorf("QualifiedName() = %s; want %s", got, tt.expected)
			}
		})
	}
}

func TestBufferJoin(t *testing.T) {
	var b Buffer
	b.WriteIdents(Postgres, []string{"a", "b", "c"}, ", ")
	if got, want := b.String(), `"a", "b", "c"`; got != want {
		t.Errorf("WriteIdents() = %s; want %s", got, want)
	}

	var exprs Buffer
	Join(&exprs, Postgres, []Expr{IntLit(1), StringLit("x"), NullLit{}}, " | ")
	if got, want := exprs.String(), `1 | 'x' | NULL`; got != want {
		t.Errorf("Join() = %s; want %s", got, want)
	}
}
