package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pgschema/sqlschema/ir"
)

func TestDetectHeaderFromReader(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected DumpHeader
	}{
		{
			name:     "generated header",
			content:  FormatDumpHeader("17.5", ir.Postgres, "public") + "CREATE TABLE \"users\" (\"id\" BIGINT);\n",
			expected: DumpHeader{Schema: "public", Dialect: "postgres"},
		},
		{
			name: "non-public schema",
			content: `--
-- sqlschema database dump
--

-- Dumped from database version 8.4.0
-- Dumped by sqlschema 0.1.0
-- Dialect: mysql
-- Dumped from schema: shop

`,
			expected: DumpHeader{Schema: "shop", Dialect: "mysql"},
		},
		{
			name:     "sqlite dump without schema",
			content:  FormatDumpHeader("3.46.0", ir.SQLite, ""),
			expected: DumpHeader{Dialect: "sqlite"},
		},
		{
			name: "hand written file",
			content: `CREATE TABLE users (
    id integer NOT NULL
);
`,
			expected: DumpHeader{},
		},
		{
			name:     "empty file",
			content:  "",
			expected: DumpHeader{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := detectHeaderFromReader(strings.NewReader(tt.content))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result != tt.expected {
				t.Errorf("got %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestDetectDumpHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.sql")
	if err := os.WriteFile(path, []byte(FormatDumpHeader("17.5", ir.Postgres, "vehicle")), 0644); err != nil {
		t.Fatalf("Failed to write dump: %v", err)
	}

	header, err := DetectDumpHeader(path)
	if err != nil {
		t.Fatalf("DetectDumpHeader() failed: %v", err)
	}
	if header.Schema != "vehicle" {
		t.Errorf("Schema = %q; want vehicle", header.Schema)
	}

	if _, err := DetectDumpHeader(filepath.Join(t.TempDir(), "missing.sql")); err == nil {
		t.Error("DetectDumpHeader() of a missing file succeeded; want error")
	}
}
