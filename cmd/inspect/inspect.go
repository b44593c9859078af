package inspect

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pgschema/sqlschema/cmd/util"
	"github.com/pgschema/sqlschema/internal/ignore"
	dbinspect "github.com/pgschema/sqlschema/internal/inspect"
	"github.com/pgschema/sqlschema/internal/source"
	"github.com/pgschema/sqlschema/ir"
)

var (
	conn         util.ConnectionFlags
	schema       string
	format       string
	withRoutines bool
)

var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect the schema of a database namespace",
	Long: `Inspect one namespace of a live database and print it as a schema document.

With --routines, PostgreSQL functions, procedures and triggers are listed as well. They
are reported for information only and are never part of a plan.`,
	RunE:         runInspect,
	SilenceUsage: true,
}

func init() {
	conn.Register(InspectCmd)
	InspectCmd.Flags().StringVar(&schema, "schema", "", "Namespace to inspect (default: public for postgres, the database for mysql)")
	InspectCmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	InspectCmd.Flags().BoolVar(&withRoutines, "routines", false, "Also list routines and triggers (postgres only)")
}

// Report is the inspect output: the schema document plus informational objects.
type Report struct {
	source.Document `yaml:",inline"`
	Routines        []dbinspect.Routine `yaml:"routines,omitempty" json:"routines,omitempty"`
	Triggers        []dbinspect.Trigger `yaml:"triggers,omitempty" json:"triggers,omitempty"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	config, err := conn.Config(cmd)
	if err != nil {
		return err
	}
	if withRoutines && config.Dialect != ir.Postgres {
		return fmt.Errorf("--routines is only supported for postgres")
	}

	ignoreConfig, err := ignore.LoadIgnoreFile()
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", ignore.IgnoreFileName, err)
	}

	report, err := BuildReport(cmd.Context(), config, schema, withRoutines, ignoreConfig)
	if err != nil {
		return err
	}
	out, err := report.Marshal(format)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// BuildReport inspects the namespace of the configured database. Tables
// matched by ign are left out.
func BuildReport(ctx context.Context, config *util.ConnectionConfig, namespace string, routines bool, ign *ignore.Config) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if namespace == "" {
		namespace = util.DefaultNamespace(config)
	}

	db, err := util.Connect(ctx, config)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	s, err := db.Inspector().Schema(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	report := &Report{Document: source.FromSchema(ign.Filter(s), config.Dialect)}

	if pg := db.PostgresInspector(); routines && pg != nil {
		if report.Routines, err = pg.Routines(ctx, namespace); err != nil {
			return nil, fmt.Errorf("failed to inspect routines: %w", err)
		}
		if report.Triggers, err = pg.Triggers(ctx, namespace); err != nil {
			return nil, fmt.Errorf("failed to inspect triggers: %w", err)
		}
	}
	return report, nil
}

// Marshal renders the report as yaml or json.
func (r *Report) Marshal(format string) ([]byte, error) {
	switch format {
	case "", "yaml":
		out, err := yaml.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return out, nil
	case "json":
		out, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode report: %w", err)
		}
		return append(out, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q: expected yaml or json", format)
	}
}

// ResetFlags resets all global flag variables to their default values for testing
func ResetFlags() {
	conn.Reset()
	schema = ""
	format = "yaml"
	withRoutines = false
}
