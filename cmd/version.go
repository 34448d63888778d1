package cmd

import (
	"fmt"

	"github.com/casks-mutters/state-delta-audit/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print detailed version and build information for state-audit.

This includes the semantic version, git commit hash, build timestamp,
and Go version used to compile the binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := version.GetInfo()
		if _, err := info.SemVer(); err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), info.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
