package dump

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/ignore"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/internal/source"
	"github.com/pgschema/sqlschema/ir"
)

var (
	conn   util.ConnectionFlags
	schema string
	format string
	file   string
)

var DumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the schema of a database namespace",
	Long: `Dump the tables, columns, constraints and indexes of one namespace as a schema file.

The sql format writes PostgreSQL DDL, the syntax plan reads from .sql files, with a header
recording the source dialect and namespace. The yaml and json formats write a schema document
whose types and expressions are in the source dialect.`,
	RunE:         runDump,
	SilenceUsage: true,
}

func init() {
	conn.Register(DumpCmd)
	DumpCmd.Flags().StringVar(&schema, "schema", "", "Namespace to dump (default: public for postgres, the database for mysql)")
	DumpCmd.Flags().StringVar(&format, "format", "sql", "Output format: sql, yaml or json")
	DumpCmd.Flags().StringVar(&file, "file", "", "Output file path (default: stdout)")
}

// DumpConfig holds configuration for dump generation
type DumpConfig struct {
	Connection *util.ConnectionConfig
	Schema     string
	Format     string
	// Ignore leaves matching tables out of the dump.
	Ignore *ignore.Config
}

func runDump(cmd *cobra.Command, args []string) error {
	config, err := conn.Config(cmd)
	if err != nil {
		return err
	}
	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ignore.IgnoreFileName, err)
	}

	output, err := ExecuteDump(cmd.Context(), &DumpConfig{
		Connection: config,
		Schema:     schema,
		Format:     format,
		Ignore:     ignoreConfig,
	})
	if err != nil {
		return err
	}

	if file == "" {
		fmt.Fprint(cmd.OutOrStdout(), output)
		return nil
	}
	if dir := filepath.Dir(file); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(file, []byte(output), 0644); err != nil {
		return fmt.Errorf("failed to write dump to %s: %w", file, err)
	}
	return nil
}

// ExecuteDump inspects the configured database and renders its schema.
func ExecuteDump(ctx context.Context, config *DumpConfig) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	namespace := config.Schema
	if namespace == "" {
		namespace = util.DefaultNamespace(config.Connection)
	}

	db, err := util.Connect(ctx, config.Connection)
	if err != nil {
		return "", err
	}
	defer db.Close()

	s, err := db.Inspector().Schema(ctx, namespace)
	if err != nil {
		return "", fmt.Errorf("failed to inspect schema: %w", err)
	}
	serverVersion, err := db.ServerVersion(ctx)
	if err != nil {
		return "", err
	}

	logger.Get().Debug("Inspected schema for dump",
		"dialect", config.Connection.Dialect,
		"schema", namespace,
		"tables", len(s.Tables))

	return Render(config.Ignore.Filter(s), config.Connection.Dialect, serverVersion, namespace, config.Format)
}

// Render formats an inspected schema. Tables are written without their
// namespace so a dump can be planned against any namespace.
func Render(s ir.Schema, d ir.Dialect, serverVersion, namespace, format string) (string, error) {
	s = s.NameSchema("")
	switch format {
	case "", "sql":
		return renderSQL(s, d, serverVersion, namespace)
	case "yaml":
		out, err := source.MarshalYAML(s, d)
		return string(out), err
	case "json":
		out, err := source.MarshalJSON(s, d)
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	default:
		return "", fmt.Errorf("unknown dump format %q: expected sql, yaml or json", format)
	}
}

func renderSQL(s ir.Schema, d ir.Dialect, serverVersion, namespace string) (string, error) {
	// Creating every table from nothing yields the schema in dependency order.
	m, err := diff.Migrate(ir.Schema{}, s, diff.Options{AllowDestructive: true, Dialect: ir.Postgres})
	if err != nil {
		return "", fmt.Errorf("failed to order schema objects: %w", err)
	}

	var out strings.Builder
	out.WriteString(util.FormatDumpHeader(serverVersion, d, namespace))

	first := true
	writeObject := func(name, objectType, stmt string) {
		if !first {
			out.WriteString("\n\n")
		}
		first = false
		fmt.Fprintf(&out, "--\n-- Name: %s; Type: %s\n--\n\n%s", name, objectType, stmt)
	}
	for _, op := range m.Operations {
		create, ok := op.(diff.CreateTable)
		if !ok {
			continue
		}
		stmts := create.Statements(ir.Postgres)
		writeObject(create.Table.Name, "TABLE", stmts[0])
		for i, idx := range create.Table.Indexes {
			writeObject(idx.Name, "INDEX", stmts[i+1])
		}
	}
	if !first {
		out.WriteString("\n")
	}
	return out.String(), nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	conn.Reset()
	schema = ""
	format = "sql"
	file = ""
}
