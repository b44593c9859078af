package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/cmd/dump"
	"github.com/pgschema/sqlschema/cmd/inspect"
	"github.com/pgschema/sqlschema/cmd/plan"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/internal/version"
)

var Debug bool

var RootCmd = &cobra.Command{
	Use:   "sqlschema",
	Short: "Declarative schema migrations for PostgreSQL, MySQL and SQLite",
	Long: fmt.Sprintf(`sqlschema compares a desired schema with a database and prints the
migration between them.

Version: %s@%s %s %s

Commands:
  plan     Generate a migration plan
  dump     Dump a database schema as DDL
  inspect  Print a database schema as a YAML or JSON document

Use "sqlschema [command] --help" for more information about a command.`,
		version.App(), version.GetGitCommit(), version.Platform(), version.GetBuildDate()),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogger()
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Debug, "debug", false, "Enable debug logging")
	RootCmd.AddCommand(plan.PlanCmd)
	RootCmd.AddCommand(dump.DumpCmd)
	RootCmd.AddCommand(inspect.InspectCmd)
	RootCmd.AddCommand(VersionCmd)
}

// setupLogger installs the global logger. --debug wins over LOG_LEVEL.
func setupLogger() {
	level := logger.LevelFromEnv(slog.LevelInfo)
	if Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	logger.SetGlobal(slog.New(handler), level == slog.LevelDebug)
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
