package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgschema/sqlschema/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version number of sqlschema",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "%s@%s %s %s\n", version.App(), version.GetGitCommit(), version.Platform(), version.GetBuildDate())
	},
}
