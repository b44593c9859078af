// Package source loads desired schemas from files: PostgreSQL DDL scripts and
// YAML or JSON schema documents.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pgschema/sqlschema/internal/include"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/ir"
)

// LoadFile reads a schema from path. The extension selects the format: .sql
// files are PostgreSQL DDL with \i includes expanded, while .yaml, .yml and
// .json files are schema documents whose types and expressions are read in
// dialect d.
func LoadFile(path string, d ir.Dialect) (ir.Schema, error) {
	ext := strings.ToLower(filepath.Ext(path))
	logger.Get().Debug("Loading schema file", "path", path, "format", ext, "dialect", d)

	switch ext {
	case ".sql":
		sql, err := include.NewProcessor().ProcessFile(path)
		if err != nil {
			return ir.Schema{}, err
		}
		s, err := ParseSQL(sql)
		if err != nil {
			return ir.Schema{}, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return ir.Schema{}, fmt.Errorf("failed to read file %s: %w", path, err)
		}
		s, err := ParseYAML(data, d)
		if err != nil {
			return ir.Schema{}, fmt.Errorf("%s: %w", path, err)
		}
		return s, nil
	default:
		return ir.Schema{}, fmt.Errorf("unsupported schema file %s: expected .sql, .yaml, .yml or .json", path)
	}
}
