// Package ignore excludes tables matching glob patterns from comparison.
package ignore

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/pgschema/sqlschema/ir"
)

// Config holds the patterns of objects to leave out of plans and dumps.
// Patterns support * wildcards; a pattern prefixed with ! re-includes
// names matched by another pattern.
type Config struct {
	Tables []string
}

// ShouldIgnoreTable checks if a table should be ignored based on the patterns
func (c *Config) ShouldIgnoreTable(tableName string) bool {
	if c == nil {
		return false
	}
	return shouldIgnore(tableName, c.Tables)
}

// Filter returns s without the ignored tables.
func (c *Config) Filter(s ir.Schema) ir.Schema {
	if c == nil || len(c.Tables) == 0 {
		return s
	}
	s.Tables = slices.DeleteFunc(slices.Clone(s.Tables), func(t ir.Table) bool {
		return c.ShouldIgnoreTable(t.Name)
	})
	return s
}

// Negation patterns take precedence over inclusion patterns.
func shouldIgnore(name string, patterns []string) bool {
	matched := false
	for _, pattern := range patterns {
		if strings.HasPrefix(pattern, "!") {
			if matchPattern(pattern[1:], name) {
				return false
			}
			continue
		}
		if matchPattern(pattern, name) {
			matched = true
		}
	}
	return matched
}

func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	if err != nil {
		// An invalid pattern only matches itself.
		return pattern == name
	}
	return matched
}
