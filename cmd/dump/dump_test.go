package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/source"
	"github.com/pgschema/sqlschema/ir"
)

func TestDumpCommand(t *testing.T) {
	if DumpCmd.Use != "dump" {
		t.Errorf("Expected Use to be 'dump', got '%s'", DumpCmd.Use)
	}
	for _, name := range []string{"dialect", "db", "user", "dsn", "schema", "format", "file"} {
		if DumpCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected --%s flag to be defined", name)
		}
	}
}

func TestDumpCommandRequiresDatabase(t *testing.T) {
	ResetFlags()
	t.Setenv("PGDATABASE", "")
	t.Setenv("PGUSER", "")

	DumpCmd.SetArgs([]string{})
	err := DumpCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "database name is required") {
		t.Errorf("expected missing database error, got %v", err)
	}
}

// inspected mimics a schema read from the shop namespace of a database.
func inspected() ir.Schema {
	return ir.NewSchema(
		ir.NewTable("orders").InSchema("shop").
			AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
			AddColumn(ir.NewColumn("user_id", ir.Int64).NotNull().References("users", "id")).
			AddIndex(ir.NewIndex("orders_user_idx", "user_id")),
		ir.NewTable("users").InSchema("shop").
			AddColumn(ir.NewColumn("id", ir.Int64).AsPrimaryKey()).
			AddColumn(ir.NewColumn("email", ir.Text).NotNull()),
	).NameSchema("shop")
}

func TestRenderSQL(t *testing.T) {
	out, err := Render(inspected(), ir.MySQL, "8.4.0", "shop", "sql")
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}

	if !strings.HasPrefix(out, util.FormatDumpHeader("8.4.0", ir.MySQL, "shop")) {
		t.Errorf("dump should start with the header, got:\n%s", out)
	}
	users := strings.Index(out, "-- Name: users; Type: TABLE")
	orders := strings.Index(out, "-- Name: orders; Type: TABLE")
	index := strings.Index(out, "-- Name: orders_user_idx; Type: INDEX")
	if users < 0 || orders < 0 || index < 0 {
		t.Fatalf("dump is missing objects:\n%s", out)
	}
	if users > orders || orders > index {
		t.Errorf("referenced tables must come first, then their indexes:\n%s", out)
	}
	if strings.Contains(out, `"shop".`) {
		t.Errorf("dump should not qualify tables with the namespace:\n%s", out)
	}
	if !strings.HasSuffix(out, "CREATE INDEX \"orders_user_idx\" ON \"orders\" (\"user_id\");\n") {
		t.Errorf("unexpected dump tail:\n%s", out)
	}
}

func TestRenderSQLRoundTrip(t *testing.T) {
	out, err := Render(inspected(), ir.Postgres, "17.2", "shop", "sql")
	if err != nil {
		t.Fatalf("Render() failed: %v", err)
	}
	path := filepath.Join(t.TempDir(), "dump.sql")
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		t.Fatalf("Failed to write dump: %v", err)
	}
	header, err := util.DetectDumpHeader(path)
	if err != nil {
		t.Fatalf("DetectDumpHeader() failed: %v", err)
	}
	if header.Dialect != "postgres" || header.Schema != "shop" {
		t.Errorf("header = %+v", header)
	}

	parsed, err := source.ParseSQL(out)
	if err != nil {
		t.Fatalf("ParseSQL() failed on dump output: %v\n%s", err, out)
	}
	m, err := diff.Migrate(parsed, inspected().NameSchema(""), diff.Options{Dialect: ir.Postgres})
	if err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}
	if !m.IsEmpty() {
		t.Errorf("reloaded dump should match the inspected schema, got:\n%s", m.SQL())
	}
}

func TestRenderDocuments(t *testing.T) {
	yamlOut, err := Render(inspected(), ir.SQLite, "3.46.0", "", "yaml")
	if err != nil {
		t.Fatalf("Render(yaml) failed: %v", err)
	}
	if !strings.HasPrefix(yamlOut, "tables:\n") || strings.Contains(yamlOut, "schema: shop") {
		t.Errorf("unexpected yaml dump:\n%s", yamlOut)
	}

	parsed, err := source.ParseYAML([]byte(yamlOut), ir.SQLite)
	if err != nil {
		t.Fatalf("ParseYAML() failed: %v", err)
	}
	if len(parsed.Tables) != 2 {
		t.Errorf("expected 2 tables, got %d", len(parsed.Tables))
	}

	jsonOut, err := Render(inspected(), ir.SQLite, "3.46.0", "", "json")
	if err != nil {
		t.Fatalf("Render(json) failed: %v", err)
	}
	if !strings.HasPrefix(jsonOut, "{\n") || !strings.HasSuffix(jsonOut, "}\n") {
		t.Errorf("unexpected json dump:\n%s", jsonOut)
	}

	if _, err := Render(inspected(), ir.SQLite, "", "", "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
