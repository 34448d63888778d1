package cmd

import (
	"github.com/casks-mutters/state-delta-audit/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "state-audit",
	Short:   "A contract storage diff auditor",
	Long:    "state-audit compares raw storage slots of a contract between two blocks and fingerprints the slots that changed",
	Version: version.GetInfo().Short(),
}

// Execute runs the root command, dispatching to the sub-command selected on the command line.
func Execute() error {
	return rootCmd.Execute()
}
