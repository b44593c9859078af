package inspect

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/ir"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open SQLite: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func applySQLite(ctx context.Context, t *testing.T, db *sql.DB, m *diff.Migration) {
	t.Helper()
	for _, stmt := range m.Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to execute %q: %v", stmt, err)
		}
	}
}

func sqliteShop() ir.Schema {
	return ir.NewSchema(
		ir.NewTable("customers").
			AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey().GeneratedAs(ir.Identity(ir.Always))).
			AddColumn(ir.NewColumn("email", ir.Text).NotNull().WithConstraint(ir.Unique{})).
			AddColumn(ir.NewColumn("name", ir.Text).WithDefault(ir.StringLit("anon"))),
		ir.NewTable("orders").
			AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
			AddColumn(ir.NewColumn("customer_id", ir.Int64).NotNull().
				WithConstraint(ir.ForeignKey{Table: "customers", Columns: []string{"id"}, OnDelete: ir.Cascade})).
			AddColumn(ir.NewColumn("status", ir.Text).NotNull().WithDefault(ir.StringLit("new"))).
			AddColumn(ir.NewColumn("total", ir.Float64).WithDefault(ir.IntLit(0))).
			AddIndex(ir.NewIndex("orders_status_idx", "status")),
	)
}

func TestSQLiteInspectorRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	desired := sqliteShop()
	opts := diff.Options{Dialect: ir.SQLite}

	create, err := diff.Migrate(ir.Schema{}, desired, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	applySQLite(ctx, t, db, create)

	inspector := NewSQLiteInspector(db)
	current, err := inspector.Schema(ctx, "")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	if len(current.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(current.Tables))
	}

	m, err := diff.Migrate(current, desired, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if !m.IsEmpty() {
		t.Errorf("expected no changes after applying the migration, got:\n%s", m.SQL())
	}
}

func TestSQLiteInspectorAfterAddColumn(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	opts := diff.Options{Dialect: ir.SQLite}
	inspector := NewSQLiteInspector(db)

	v1 := sqliteShop()
	create, err := diff.Migrate(ir.Schema{}, v1, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	applySQLite(ctx, t, db, create)

	customers, _ := v1.Table("", "customers")
	v2 := ir.NewSchema(
		customers.AddColumn(ir.NewColumn("nickname", ir.Text)),
		v1.Tables[1].AddIndex(ir.NewIndex("orders_customer_idx", "customer_id")),
	)

	current, err := inspector.Schema(ctx, "main")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	alter, err := diff.Migrate(current, v2, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if alter.IsEmpty() {
		t.Fatal("expected changes")
	}
	applySQLite(ctx, t, db, alter)

	current, err = inspector.Schema(ctx, "main")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	m, err := diff.Migrate(current, v2, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if !m.IsEmpty() {
		t.Errorf("expected no changes, got:\n%s", m.SQL())
	}
}

func TestSQLiteInspectorReadsHandWrittenSchema(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	for _, stmt := range []string{
		`CREATE TABLE authors (id INTEGER PRIMARY KEY, name TEXT NOT NULL)`,
		`CREATE TABLE books (
			id INTEGER PRIMARY KEY,
			author_id INTEGER REFERENCES authors ON DELETE SET NULL,
			title TEXT,
			isbn TEXT UNIQUE
		)`,
		`CREATE INDEX books_title_lower ON books (lower(title))`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("Failed to execute %q: %v", stmt, err)
		}
	}

	schema, err := NewSQLiteInspector(db).Schema(ctx, "")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}

	books, ok := schema.Table("", "books")
	if !ok {
		t.Fatal("books table not found")
	}
	authorID, _ := books.FindColumn("author_id")
	fk, ok := authorID.Constraint.(ir.ForeignKey)
	if !ok {
		t.Fatalf("author_id constraint = %#v; want foreign key", authorID.Constraint)
	}
	if fk.Table != "authors" || len(fk.Columns) != 1 || fk.Columns[0] != "id" || fk.OnDelete != ir.SetNull {
		t.Errorf("unexpected foreign key %#v", fk)
	}
	isbn, _ := books.FindColumn("isbn")
	if _, ok := isbn.Constraint.(ir.Unique); !ok {
		t.Errorf("isbn constraint = %#v; want unique", isbn.Constraint)
	}
	if len(books.Indexes) != 0 {
		t.Errorf("expression index should be skipped, got %v", books.Indexes)
	}
}

func TestSQLiteDropColumns(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	opts := diff.Options{Dialect: ir.SQLite, AllowDestructive: true}
	inspector := NewSQLiteInspector(db)

	parent := ir.NewTable("parent").
		AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
		AddColumn(ir.NewColumn("name", ir.Text))
	child := ir.NewTable("child").
		AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
		AddColumn(ir.NewColumn("code", ir.Text).WithConstraint(ir.Unique{}))
	v1 := ir.NewSchema(parent, child.
		AddColumn(ir.NewColumn("parent_id", ir.Int64).References("parent", "id")).
		AddColumn(ir.NewColumn("tag", ir.Text)).
		AddIndex(ir.NewIndex("child_tag_idx", "tag")))

	create, err := diff.Migrate(ir.Schema{}, v1, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	applySQLite(ctx, t, db, create)

	current, err := inspector.Schema(ctx, "")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}

	rejected := map[string]ir.Schema{
		"unique column": ir.NewSchema(parent, ir.NewTable("child").
			AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
			AddColumn(ir.NewColumn("parent_id", ir.Int64).References("parent", "id")).
			AddColumn(ir.NewColumn("tag", ir.Text)).
			AddIndex(ir.NewIndex("child_tag_idx", "tag"))),
		"referenced primary key": ir.NewSchema(
			ir.NewTable("parent").AddColumn(ir.NewColumn("name", ir.Text)),
			child.AddColumn(ir.NewColumn("parent_id", ir.Int64)).AddColumn(ir.NewColumn("tag", ir.Text)),
		),
	}
	for name, desired := range rejected {
		if m, err := diff.Migrate(current, desired, opts); !errors.Is(err, diff.ErrUnsupported) {
			t.Errorf("%s: expected unsupported error, got %v with:\n%s", name, err, m.SQL())
		}
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE "child" DROP COLUMN "code"`); err == nil {
		t.Error("SQLite accepted dropping a UNIQUE column")
	}

	// The foreign key column goes with its inline REFERENCES clause; the
	// indexed column only after its index.
	v2 := ir.NewSchema(parent, child)
	m, err := diff.Migrate(current, v2, opts)
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	expected := []string{
		`DROP INDEX "child_tag_idx";`,
		`ALTER TABLE "child" DROP COLUMN "parent_id";`,
		`ALTER TABLE "child" DROP COLUMN "tag";`,
	}
	if diff := cmp.Diff(expected, m.Statements()); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	applySQLite(ctx, t, db, m)

	current, err = inspector.Schema(ctx, "")
	if err != nil {
		t.Fatalf("Schema() failed: %v", err)
	}
	if m, err := diff.Migrate(current, v2, opts); err != nil || !m.IsEmpty() {
		t.Errorf("expected no changes, got %v:\n%s", err, m.SQL())
	}
}
