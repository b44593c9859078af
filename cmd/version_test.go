package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pgschema/sqlschema/internal/version"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetArgs([]string{"version"})

	if err := RootCmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}

	output := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(output, "sqlschema "+version.Version()+"@") {
		t.Errorf("expected output to start with the application version, got: %s", output)
	}
	if !strings.Contains(output, version.Platform()) {
		t.Errorf("expected output to contain the platform %s, got: %s", version.Platform(), output)
	}
}
