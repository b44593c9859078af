package include

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestProcessFile_NestedIncludes(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.sql": `-- shop schema
\i tables/customers.sql
\ir tables/orders.sql;
-- end`,
		"tables/customers.sql": `CREATE TABLE customers (id bigint PRIMARY KEY);`,
		"tables/orders.sql": `CREATE TABLE orders (id bigint PRIMARY KEY);
\i items.sql`,
		"tables/items.sql": `CREATE TABLE order_items (order_id bigint REFERENCES orders);`,
	})

	p := NewProcessor()
	out, err := p.ProcessFile(filepath.Join(dir, "main.sql"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	for _, want := range []string{"CREATE TABLE customers", "CREATE TABLE orders", "CREATE TABLE order_items", "-- end"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, `\i`) {
		t.Errorf("include directives should be replaced, got:\n%s", out)
	}
	if strings.Index(out, "customers") > strings.Index(out, "order_items") {
		t.Errorf("included files out of order:\n%s", out)
	}
	if len(p.Files()) != 4 {
		t.Errorf("expected 4 files read, got %v", p.Files())
	}
}

func TestProcessFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		message string
	}{
		{
			name: "circular include",
			files: map[string]string{
				"main.sql": `\i a.sql`,
				"a.sql":    `\i b.sql`,
				"b.sql":    `\i a.sql`,
			},
			message: "circular include",
		},
		{
			name:    "directory traversal",
			files:   map[string]string{"main.sql": `\i ../secret.sql`},
			message: "must be relative",
		},
		{
			name:    "missing file",
			files:   map[string]string{"main.sql": `\i missing.sql`},
			message: "missing.sql",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeFiles(t, tt.files)
			_, err := NewProcessor().ProcessFile(filepath.Join(dir, "main.sql"))
			if err == nil {
				t.Fatal("ProcessFile succeeded; want error")
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("error %q does not mention %q", err, tt.message)
			}
		})
	}
}

func TestProcessFile_SameFileInSeparateBranches(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.sql":   "\\i a.sql\n\\i b.sql",
		"a.sql":      `\i common.sql`,
		"b.sql":      `\i common.sql`,
		"common.sql": `-- common`,
	})

	out, err := NewProcessor().ProcessFile(filepath.Join(dir, "main.sql"))
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if strings.Count(out, "-- common") != 2 {
		t.Errorf("expected common.sql twice, got:\n%s", out)
	}
}
