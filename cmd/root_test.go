package cmd

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/pgschema/sqlschema/internal/logger"
)

func TestRootCommand(t *testing.T) {
	var buf bytes.Buffer
	RootCmd.SetOut(&buf)
	RootCmd.SetErr(&buf)
	RootCmd.SetArgs([]string{"--help"})

	err := RootCmd.Execute()
	if err != nil {
		t.Errorf("root command with --help failed: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "compares a desired schema with a database") {
		t.Errorf("expected help output to contain description, got: %s", output)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	commands := RootCmd.Commands()

	expectedCommands := []string{"version", "dump", "inspect", "plan"}
	commandNames := make([]string, len(commands))
	for i, cmd := range commands {
		commandNames[i] = cmd.Name()
	}

	for _, expected := range expectedCommands {
		found := false
		for _, actual := range commandNames {
			if actual == expected {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %s not found in: %v", expected, commandNames)
		}
	}
}

func TestSetupLogger(t *testing.T) {
	t.Cleanup(func() { Debug = false })

	t.Setenv("LOG_LEVEL", "")
	Debug = false
	setupLogger()
	if logger.IsDebug() {
		t.Error("logger should not be in debug mode by default")
	}

	Debug = true
	setupLogger()
	if !logger.IsDebug() {
		t.Error("--debug should enable debug logging")
	}
	if !logger.Get().Enabled(t.Context(), slog.LevelDebug) {
		t.Error("debug records should be enabled with --debug")
	}
}
