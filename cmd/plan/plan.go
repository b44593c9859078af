package plan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/internal/diff"
	"github.com/pgschema/sqlschema/internal/fingerprint"
	"github.com/pgschema/sqlschema/internal/ignore"
	"github.com/pgschema/sqlschema/internal/logger"
	"github.com/pgschema/sqlschema/internal/plan"
	"github.com/pgschema/sqlschema/internal/source"
	"github.com/pgschema/sqlschema/ir"
)

var (
	conn             util.ConnectionFlags
	planSchema       string
	planFile         string
	planCurrent      string
	allowDestructive bool
	online           bool
	outputHuman      string
	outputJSON       string
	outputSQL        string
	planNoColor      bool
	expectFP         string
)

var PlanCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a migration plan",
	Long: `Generate the migration that turns the current schema into the desired schema in --file.

The current schema is read from a live database (connection flags) or from another
schema file (--current). Schema files are PostgreSQL DDL (.sql, with \i includes)
or YAML/JSON schema documents (.yaml, .yml, .json).`,
	RunE:         runPlan,
	SilenceUsage: true,
}

func init() {
	conn.Register(PlanCmd)
	PlanCmd.Flags().StringVar(&planSchema, "schema", "", "Namespace to compare (default: public for postgres, the database for mysql)")
	PlanCmd.Flags().StringVar(&planFile, "file", "", "Path to the desired state schema file (required)")
	PlanCmd.Flags().StringVar(&planCurrent, "current", "", "Path to a schema file describing the current state, instead of a database")
	PlanCmd.Flags().BoolVar(&allowDestructive, "allow-destructive", false, "Allow dropping tables and columns")
	PlanCmd.Flags().BoolVar(&online, "online", false, "Rewrite postgres index and constraint creation to avoid long locks")
	PlanCmd.Flags().StringVar(&expectFP, "expect-fingerprint", "", "Fail unless the current schema has this fingerprint (as reported by an earlier plan)")

	PlanCmd.Flags().StringVar(&outputHuman, "output-human", "", "Output human-readable format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputJSON, "output-json", "", "Output JSON format to stdout or file path")
	PlanCmd.Flags().StringVar(&outputSQL, "output-sql", "", "Output SQL format to stdout or file path")
	PlanCmd.Flags().BoolVar(&planNoColor, "no-color", false, "Disable colored output")

	PlanCmd.MarkFlagRequired("file")
}

// PlanConfig holds configuration for plan generation
type PlanConfig struct {
	Dialect ir.Dialect
	File    string
	// Current is a schema file for the current state. When empty the
	// database described by Connection is inspected.
	Current    string
	Connection *util.ConnectionConfig
	// Schema is the namespace to compare. Empty selects the default.
	Schema           string
	AllowDestructive bool
	Online           bool
	// Ignore leaves matching tables out of both schemas.
	Ignore *ignore.Config
	// ExpectedFingerprint, when set, must match the current schema.
	ExpectedFingerprint string
}

func runPlan(cmd *cobra.Command, args []string) error {
	d, err := conn.ParseDialect()
	if err != nil {
		return err
	}
	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ignore.IgnoreFileName, err)
	}
	config := &PlanConfig{
		Dialect:             d,
		File:                planFile,
		Current:             planCurrent,
		Schema:              planSchema,
		AllowDestructive:    allowDestructive,
		Online:              online,
		Ignore:              ignoreConfig,
		ExpectedFingerprint: expectFP,
	}

	// A dump written by sqlschema records its dialect and namespace.
	if strings.EqualFold(filepath.Ext(planFile), ".sql") {
		header, err := util.DetectDumpHeader(planFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", planFile, err)
		}
		if header.Dialect != "" && !cmd.Flags().Changed("dialect") {
			if config.Dialect, err = ir.ParseDialect(header.Dialect); err != nil {
				return err
			}
		}
		if header.Schema != "" && !cmd.Flags().Changed("schema") {
			config.Schema = header.Schema
		}
	}

	if config.Current == "" {
		conn.Dialect = config.Dialect.String()
		if config.Connection, err = conn.Config(cmd); err != nil {
			return err
		}
	}

	migrationPlan, err := GeneratePlan(cmd.Context(), config)
	if err != nil {
		return err
	}

	outputs, err := determineOutputs()
	if err != nil {
		return err
	}
	for _, output := range outputs {
		if err := processOutput(migrationPlan, output, cmd); err != nil {
			return err
		}
	}
	return nil
}

// GeneratePlan loads both schemas and computes the migration between them.
func GeneratePlan(ctx context.Context, config *PlanConfig) (*plan.Plan, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	desired, err := source.LoadFile(config.File, config.Dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to load desired state: %w", err)
	}

	var current ir.Schema
	target := config.Schema
	if config.Current != "" {
		current, err = source.LoadFile(config.Current, config.Dialect)
		if err != nil {
			return nil, fmt.Errorf("failed to load current state: %w", err)
		}
	} else {
		namespace := config.Schema
		if namespace == "" {
			namespace = util.DefaultNamespace(config.Connection)
		}
		current, err = inspectDatabase(ctx, config.Connection, namespace)
		if err != nil {
			return nil, err
		}
		// Statements stay unqualified for the connection's default namespace.
		if namespace == util.DefaultNamespace(config.Connection) {
			target = ""
		} else {
			target = namespace
		}
	}

	current = config.Ignore.Filter(current).NameSchema(target)
	desired = config.Ignore.Filter(desired).NameSchema(target)

	sourceFingerprint := fingerprint.ComputeFingerprint(current)
	if config.ExpectedFingerprint != "" {
		if err := fingerprint.Compare(&fingerprint.SchemaFingerprint{Hash: config.ExpectedFingerprint}, sourceFingerprint); err != nil {
			return nil, fmt.Errorf("current schema changed since the plan was made: %w", err)
		}
	}

	m, err := diff.Migrate(current, desired, diff.Options{
		AllowDestructive: config.AllowDestructive,
		Dialect:          config.Dialect,
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Debug("Generated plan",
		"dialect", config.Dialect,
		"schema", target,
		"operations", len(m.Operations),
		"hazards", len(m.Hazards))

	p := plan.New(m, plan.Options{
		AllowDestructive: config.AllowDestructive,
		Online:           config.Online,
	}, target)
	p.SourceFingerprint = sourceFingerprint
	return p, nil
}

func inspectDatabase(ctx context.Context, config *util.ConnectionConfig, namespace string) (ir.Schema, error) {
	db, err := util.Connect(ctx, config)
	if err != nil {
		return ir.Schema{}, err
	}
	defer db.Close()

	current, err := db.Inspector().Schema(ctx, namespace)
	if err != nil {
		return ir.Schema{}, fmt.Errorf("failed to inspect current state: %w", err)
	}
	return current, nil
}

type outputSpec struct {
	format string
	target string
}

// determineOutputs parses the output flags and returns the list of outputs to generate
func determineOutputs() ([]outputSpec, error) {
	var outputs []outputSpec
	stdoutCount := 0

	for _, o := range []outputSpec{
		{format: "human", target: outputHuman},
		{format: "json", target: outputJSON},
		{format: "sql", target: outputSQL},
	} {
		if o.target == "" {
			continue
		}
		if o.target == "stdout" {
			stdoutCount++
		}
		outputs = append(outputs, o)
	}

	if stdoutCount > 1 {
		return nil, fmt.Errorf("only one output format can use stdout")
	}

	// Default behavior: if no outputs specified, output human to stdout
	if len(outputs) == 0 {
		outputs = append(outputs, outputSpec{format: "human", target: "stdout"})
	}

	return outputs, nil
}

// processOutput writes the plan in the specified format to the target destination
func processOutput(migrationPlan *plan.Plan, output outputSpec, cmd *cobra.Command) error {
	var content string
	switch output.format {
	case "human":
		content = migrationPlan.HumanColored(!planNoColor && output.target == "stdout")
	case "json":
		jsonOutput, err := migrationPlan.ToJSON()
		if err != nil {
			return err
		}
		content = jsonOutput + "\n"
	case "sql":
		content = migrationPlan.ToSQL()
	default:
		return fmt.Errorf("unknown output format %q", output.format)
	}

	if output.target == "stdout" {
		fmt.Fprint(cmd.OutOrStdout(), content)
		return nil
	}

	if dir := filepath.Dir(output.target); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(output.target, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s output to %s: %w", output.format, output.target, err)
	}
	return nil
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	conn.Reset()
	planSchema = ""
	planFile = ""
	planCurrent = ""
	allowDestructive = false
	online = false
	outputHuman = ""
	outputJSON = ""
	outputSQL = ""
	planNoColor = false
	expectFP = ""
}
