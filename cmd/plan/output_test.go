package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestDetermineOutputs(t *testing.T) {
	tests := []struct {
		name        string
		outputHuman string
		outputJSON  string
		outputSQL   string
		expectError bool
		errorMsg    string
		expectCount int
	}{
		{
			name:        "no flags - default to human stdout",
			expectCount: 1,
		},
		{
			name:        "single json to stdout",
			outputJSON:  "stdout",
			expectCount: 1,
		},
		{
			name:        "multiple to files",
			outputHuman: "plan.txt",
			outputJSON:  "plan.json",
			outputSQL:   "plan.sql",
			expectCount: 3,
		},
		{
			name:        "json to stdout, sql to file",
			outputJSON:  "stdout",
			outputSQL:   "migration.sql",
			expectCount: 2,
		},
		{
			name:        "multiple stdout error",
			outputJSON:  "stdout",
			outputSQL:   "stdout",
			expectError: true,
			errorMsg:    "only one output format can use stdout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetFlags()
			outputHuman = tt.outputHuman
			outputJSON = tt.outputJSON
			outputSQL = tt.outputSQL

			outputs, err := determineOutputs()

			if tt.expectError {
				if err == nil || !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("expected error containing '%s', got %v", tt.errorMsg, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(outputs) != tt.expectCount {
				t.Errorf("expected %d outputs, got %d", tt.expectCount, len(outputs))
			}
			if tt.expectCount == 1 && tt.outputJSON == "" && (outputs[0].format != "human" || outputs[0].target != "stdout") {
				t.Errorf("expected default output to be human to stdout, got %+v", outputs[0])
			}
		})
	}
}

func TestProcessOutputWritesFiles(t *testing.T) {
	ResetFlags()
	dir := writeSchemas(t)
	p, err := GeneratePlan(t.Context(), &PlanConfig{
		File:    filepath.Join(dir, "desired.sql"),
		Current: filepath.Join(dir, "current.sql"),
	})
	if err != nil {
		t.Fatalf("GeneratePlan() failed: %v", err)
	}

	target := filepath.Join(dir, "out", "migration.sql")
	if err := processOutput(p, outputSpec{format: "sql", target: target}, &cobra.Command{}); err != nil {
		t.Fatalf("processOutput() failed: %v", err)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if string(content) != p.ToSQL() {
		t.Errorf("file content = %q; want %q", content, p.ToSQL())
	}
}
