package cmd

import (
	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags(cmd *cobra.Command) {
	// Output path for configuration
	cmd.Flags().String("out", "", "output path for the new project configuration file")

	// RPC endpoint to record in the configuration
	cmd.Flags().String("rpc-url", "", "JSON-RPC endpoint to record in the new project configuration")

	// Cache directory to record in the configuration
	cmd.Flags().String("cache-dir", "", "directory to cache storage reads at fixed blocks in")
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the RPC endpoint if necessary
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.RPC.URL, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}

	// Update the cache directory if necessary
	if cmd.Flags().Changed("cache-dir") {
		projectConfig.Cache.Directory, err = cmd.Flags().GetString("cache-dir")
		if err != nil {
			return err
		}
	}

	return nil
}
