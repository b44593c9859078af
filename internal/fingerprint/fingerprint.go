// Package fingerprint identifies a schema state so that drift between planning
// and a later check can be detected.
package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"github.com/pgschema/sqlschema/ir"
)

// SchemaFingerprint represents a fingerprint of a database schema state
type SchemaFingerprint struct {
	Hash string `json:"hash"` // SHA256 of the canonical DDL
}

// ComputeFingerprint hashes the canonical DDL of s. Tables are ordered by
// key and indexes by name, so the fingerprint does not depend on the order
// the catalog or a file listed them in.
func ComputeFingerprint(s ir.Schema) *SchemaFingerprint {
	tables := slices.Clone(s.Tables)
	slices.SortFunc(tables, func(a, b ir.Table) int { return strings.Compare(a.Key(), b.Key()) })

	h := sha256.New()
	for _, t := range tables {
		indexes := slices.Clone(t.Indexes)
		slices.SortFunc(indexes, func(a, b ir.Index) int { return strings.Compare(a.Name, b.Name) })
		t.Indexes = nil

		fmt.Fprintf(h, "%s;\n", ir.SQL(t, ir.Postgres))
		for _, idx := range indexes {
			fmt.Fprintf(h, "%s;\n", ir.SQL(idx, ir.Postgres))
		}
	}
	return &SchemaFingerprint{Hash: fmt.Sprintf("%x", h.Sum(nil))}
}

// String returns a human-readable representation of the fingerprint
func (f *SchemaFingerprint) String() string {
	if len(f.Hash) >= 8 {
		return fmt.Sprintf("Schema fingerprint: %s", f.Hash[:8])
	}
	return fmt.Sprintf("Schema fingerprint: %s", f.Hash)
}
