package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestValidate(t *testing.T) {
	users := NewTable("users").AddColumn(NewColumn("id", Int64).AsPrimaryKey())

	tests := []struct {
		name    string
		schema  Schema
		problem string
	}{
		{
			name:    "duplicate table",
			schema:  NewSchema(users, users),
			problem: "duplicate table users",
		},
		{
			name:    "duplicate column",
			schema:  NewSchema(users.AddColumn(NewColumn("id", Text))),
			problem: "duplicate column id",
		},
		{
			name:    "quote character in table name",
			schema:  NewSchema(NewTable(`bad"name`).AddColumn(NewColumn("id", Int64))),
			problem: "quote character",
		},
		{
			name:    "default and generated",
			schema:  NewSchema(users.AddColumn(NewColumn("n", Int32).WithDefault(IntLit(1)).GeneratedAs(Identity(Always)))),
			problem: "mutually exclusive",
		},
		{
			name:    "stored by default",
			schema:  NewSchema(users.AddColumn(NewColumn("n", Int32).GeneratedAs(&Generated{Time: ByDefault, Expr: IntLit(1)}))),
			problem: "GENERATED ALWAYS",
		},
		{
			name:    "composite column foreign key",
			schema:  NewSchema(users.AddColumn(NewColumn("ref", Int64).References("users", "id", "other"))),
			problem: "exactly one column",
		},
		{
			name:    "quote character in default column reference",
			schema:  NewSchema(users.AddColumn(NewColumn("n", Int32).WithDefault(Func{Name: "coalesce", Args: []Expr{ColumnRef{Column: `x"y`}, IntLit(0)}}))),
			problem: `identifier "x\"y" contains the postgres quote character`,
		},
		{
			name: "quote character in check expression",
			schema: NewSchema(users.AddColumn(NewColumn("n", Int32).WithConstraint(Check{
				Expr: Binary{Op: ">", Left: ColumnRef{Table: `t"`, Column: "n"}, Right: IntLit(0)},
			}))),
			problem: "quote character",
		},
		{
			name:    "missing type",
			schema:  NewSchema(users.AddColumn(Column{Name: "x"})),
			problem: "type",
		},
		{
			name:    "index without columns",
			schema:  NewSchema(users.AddIndex(NewIndex("users_idx"))),
			problem: "has no columns",
		},
		{
			name: "index name reused in schema",
			schema: NewSchema(
				users.AddIndex(NewIndex("by_id", "id")),
				NewTable("teams").AddColumn(NewColumn("id", Int64)).AddIndex(NewIndex("by_id", "id")),
			),
			problem: "index by_id is defined on both users and teams",
		},
		{
			name: "index attached to wrong table",
			schema: func() Schema {
				t := users.AddColumn(NewColumn("email", Text))
				t.Indexes = []Index{{Name: "y", Table: "teams", Columns: []string{"email"}}}
				return NewSchema(t)
			}(),
			problem: "belongs to teams",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if err == nil {
				t.Fatal("Validate() succeeded; want error")
			}
			if !errors.Is(err, ErrInvalidSchema) {
				t.Errorf("error %v does not match ErrInvalidSchema", err)
			}
			if !strings.Contains(err.Error(), tt.problem) {
				t.Errorf("error %q does not mention %q", err, tt.problem)
			}
		})
	}
}

func TestValidateAcceptsWellFormedSchema(t *testing.T) {
	schema := NewSchema(
		NewTable("customers").InSchema("shop").
			AddColumn(NewColumn("id", Int64).AsPrimaryKey().GeneratedAs(Identity(ByDefault))).
			AddColumn(NewColumn("email", Text).NotNull().WithConstraint(Unique{})),
		NewTable("orders").InSchema("shop").
			AddColumn(NewColumn("id", Int64).AsPrimaryKey()).
			AddColumn(NewColumn("customer_id", Int64).NotNull().References("customers", "id")).
			AddColumn(NewColumn("tags", Array(Text))).
			AddIndex(NewIndex("orders_customer_idx", "customer_id")),
	)
	if err := schema.Validate(); err != nil {
		t.Fatalf("Validate() failed: %v", err)
	}
}

func TestNameSchema(t *testing.T) {
	schema := NewSchema(
		NewTable("orders").
			AddColumn(NewColumn("id", Int64).AsPrimaryKey()).
			AddColumn(NewColumn("customer_id", Int64).References("customers", "id")).
			AddColumn(NewColumn("region_id", Int64).WithConstraint(ForeignKey{Schema: "geo", Table: "regions", Columns: []string{"id"}})).
			AddIndex(NewIndex("orders_customer_idx", "customer_id")),
	)

	named := schema.NameSchema("public")

	expected := NewSchema(
		NewTable("orders").InSchema("public").
			AddColumn(NewColumn("id", Int64).AsPrimaryKey()).
			AddColumn(NewColumn("customer_id", Int64).WithConstraint(ForeignKey{Schema: "public", Table: "customers", Columns: []string{"id"}})).
			AddColumn(NewColumn("region_id", Int64).WithConstraint(ForeignKey{Schema: "geo", Table: "regions", Columns: []string{"id"}})).
			AddIndex(NewIndex("orders_customer_idx", "customer_id")),
	)
	if diff := cmp.Diff(expected, named); diff != "" {
		t.Errorf("NameSchema() mismatch (-want +got):\n%s", diff)
	}

	if schema.Tables[0].Schema != "" {
		t.Error("NameSchema() modified the receiver")
	}
	if fk := schema.Tables[0].Columns[1].Constraint.(ForeignKey); fk.Schema != "" {
		t.Error("NameSchema() modified the receiver's foreign keys")
	}
}
