package fingerprint

import (
	"fmt"
	"strings"
)

// Compare compares two schema fingerprints and returns an error if they don't match.
// Either side may be a prefix of the full hash, as printed by String.
func Compare(expected, actual *SchemaFingerprint) error {
	if expected.Hash != "" && (strings.HasPrefix(actual.Hash, expected.Hash) || strings.HasPrefix(expected.Hash, actual.Hash)) {
		return nil
	}

	return fmt.Errorf("schema fingerprint mismatch - expected: %s, actual: %s",
		preview(expected.Hash), preview(actual.Hash))
}

func preview(hash string) string {
	if len(hash) > 16 {
		return hash[:16]
	}
	return hash
}
