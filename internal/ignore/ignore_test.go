package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgschema/sqlschema/ir"
)

func TestShouldIgnoreTable(t *testing.T) {
	tests := []struct {
		name      string
		patterns  []string
		tableName string
		expected  bool
	}{
		{
			name:      "empty patterns",
			patterns:  []string{},
			tableName: "users",
			expected:  false,
		},
		{
			name:      "exact match",
			patterns:  []string{"temp_table"},
			tableName: "temp_table",
			expected:  true,
		},
		{
			name:      "no match",
			patterns:  []string{"temp_table"},
			tableName: "users",
			expected:  false,
		},
		{
			name:      "wildcard match - prefix",
			patterns:  []string{"temp_*"},
			tableName: "temp_users",
			expected:  true,
		},
		{
			name:      "wildcard match - middle",
			patterns:  []string{"test_*_data"},
			tableName: "test_user_data",
			expected:  true,
		},
		{
			name:      "negation wins regardless of order",
			patterns:  []string{"!temp_keep", "temp_*"},
			tableName: "temp_keep",
			expected:  false,
		},
		{
			name:      "negation alone ignores nothing",
			patterns:  []string{"!users"},
			tableName: "orders",
			expected:  false,
		},
		{
			name:      "invalid pattern matches literally",
			patterns:  []string{"bad["},
			tableName: "bad[",
			expected:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Tables: tt.patterns}
			if got := c.ShouldIgnoreTable(tt.tableName); got != tt.expected {
				t.Errorf("ShouldIgnoreTable(%q) = %v; want %v", tt.tableName, got, tt.expected)
			}
		})
	}

	var nilConfig *Config
	if nilConfig.ShouldIgnoreTable("anything") {
		t.Error("nil config should not ignore anything")
	}
}

func TestFilter(t *testing.T) {
	s := ir.NewSchema(ir.NewTable("users"), ir.NewTable("temp_import"), ir.NewTable("temp_keep"))
	c := &Config{Tables: []string{"temp_*", "!temp_keep"}}

	var names []string
	for _, table := range c.Filter(s).Tables {
		names = append(names, table.Name)
	}
	if diff := cmp.Diff([]string{"users", "temp_keep"}, names); diff != "" {
		t.Errorf("Filter() mismatch (-want +got):\n%s", diff)
	}
	if len(s.Tables) != 3 {
		t.Error("Filter() must not modify its input")
	}
}

func TestLoadIgnoreFileFromPath(t *testing.T) {
	dir := t.TempDir()

	config, err := LoadIgnoreFileFromPath(filepath.Join(dir, IgnoreFileName))
	if err != nil || config != nil {
		t.Fatalf("missing file should yield nil config, got %v, %v", config, err)
	}

	path := filepath.Join(dir, IgnoreFileName)
	content := "[tables]\npatterns = [\"temp_*\", \"!temp_keep\"]\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}
	config, err = LoadIgnoreFileFromPath(path)
	if err != nil {
		t.Fatalf("LoadIgnoreFileFromPath() failed: %v", err)
	}
	if diff := cmp.Diff([]string{"temp_*", "!temp_keep"}, config.Tables); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}

	if err := os.WriteFile(path, []byte("[views]\npatterns = [\"v_*\"]\n"), 0644); err != nil {
		t.Fatalf("Failed to write ignore file: %v", err)
	}
	if _, err := LoadIgnoreFileFromPath(path); err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("expected unknown key error, got %v", err)
	}
}
