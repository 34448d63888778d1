package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/types"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// addAuditFlags adds the various flags for the audit command
func addAuditFlags(cmd *cobra.Command) {
	defaultConfig := config.GetDefaultProjectConfig()

	// Prevent alphabetical sorting of usage message
	cmd.Flags().SortFlags = false

	// Config file
	cmd.Flags().String("config", "", "path to config file")

	// RPC endpoint
	cmd.Flags().String("rpc-url", "",
		fmt.Sprintf("JSON-RPC endpoint to read storage from (falls back to the config file, then $%s)", RPCURLEnvironmentVariable))

	// Slots
	cmd.Flags().Var(&types.SlotList{}, "slots",
		fmt.Sprintf("comma-separated slot indices to audit, decimal or 0x-prefixed hex (unless a config file is provided, default is 0..%d)", types.DefaultSlotCount-1))

	// Client pool size
	cmd.Flags().Int("pool-size", 0,
		fmt.Sprintf("number of RPC clients to dial (unless a config file is provided, default is %d)", defaultConfig.RPC.PoolSize))

	// Request timeout
	cmd.Flags().Int("timeout", 0,
		fmt.Sprintf("number of seconds after which a single RPC request is abandoned (unless a config file is provided, default is %d)", defaultConfig.RPC.RequestTimeout))

	// Attempts
	cmd.Flags().Int("attempts", 0,
		fmt.Sprintf("number of times each RPC request is attempted (unless a config file is provided, default is %d)", defaultConfig.RPC.Attempts))

	// Cache directory
	cmd.Flags().String("cache-dir", "",
		"directory to cache storage reads at fixed blocks in (unless a config file is provided, caching is disabled)")

	// Output format
	cmd.Flags().String("format", "",
		fmt.Sprintf("report format, one of %v (unless a config file is provided, default is %q)", audit.SupportedOutputFormats, defaultConfig.Output.Format))

	// Output file
	cmd.Flags().String("out", "", "path to write the report to (default is stdout)")

	// Fail on read errors
	cmd.Flags().Bool("fail-on-read-error", false,
		fmt.Sprintf("exit with a non-zero code if any storage read failed (unless a config file is provided, default is %t)", defaultConfig.Audit.FailOnReadError))

	// Expected root
	cmd.Flags().String("expect-root", "", "fingerprint the audit is expected to produce; a mismatch exits with a non-zero code")

	// Log level
	cmd.Flags().String("log-level", "",
		fmt.Sprintf("log level, one of trace, debug, info, warn, error (unless a config file is provided, default is %q)", defaultConfig.Logging.Level))

	// No color
	cmd.Flags().Bool("no-color", false, "disable colored console output")
}

// updateProjectConfigWithAuditFlags will update the given projectConfig with any positional arguments and flags that
// were provided to the audit command
func updateProjectConfigWithAuditFlags(cmd *cobra.Command, args []string, projectConfig *config.ProjectConfig) error {
	var err error

	// Positional arguments: <address> <blockA> <blockB>
	if len(args) == 3 {
		projectConfig.Audit.Address = args[0]
		if projectConfig.Audit.BlockA, err = types.ParseBlockRef(args[1]); err != nil {
			return errors.Wrap(err, "invalid first block")
		}
		if projectConfig.Audit.BlockB, err = types.ParseBlockRef(args[2]); err != nil {
			return errors.Wrap(err, "invalid second block")
		}
	}

	// Update the RPC endpoint, falling back to the environment when neither the flag nor the config file set it
	if cmd.Flags().Changed("rpc-url") {
		projectConfig.RPC.URL, err = cmd.Flags().GetString("rpc-url")
		if err != nil {
			return err
		}
	}
	if projectConfig.RPC.URL == "" {
		projectConfig.RPC.URL = strings.TrimSpace(os.Getenv(RPCURLEnvironmentVariable))
	}

	// Update slots
	if cmd.Flags().Changed("slots") {
		slots, ok := cmd.Flags().Lookup("slots").Value.(*types.SlotList)
		if !ok {
			return errors.New("unexpected type for the slots flag")
		}
		projectConfig.Audit.Slots = append([]types.Slot(nil), *slots...)
	}

	// Update RPC client settings
	if cmd.Flags().Changed("pool-size") {
		projectConfig.RPC.PoolSize, err = cmd.Flags().GetInt("pool-size")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("timeout") {
		projectConfig.RPC.RequestTimeout, err = cmd.Flags().GetInt("timeout")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("attempts") {
		projectConfig.RPC.Attempts, err = cmd.Flags().GetInt("attempts")
		if err != nil {
			return err
		}
	}

	// Update cache directory
	if cmd.Flags().Changed("cache-dir") {
		projectConfig.Cache.Directory, err = cmd.Flags().GetString("cache-dir")
		if err != nil {
			return err
		}
	}

	// Update output settings
	if cmd.Flags().Changed("format") {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		projectConfig.Output.Format = audit.OutputFormat(strings.ToLower(format))
	}
	if cmd.Flags().Changed("out") {
		projectConfig.Output.File, err = cmd.Flags().GetString("out")
		if err != nil {
			return err
		}
	}

	// Update audit outcome checks
	if cmd.Flags().Changed("fail-on-read-error") {
		projectConfig.Audit.FailOnReadError, err = cmd.Flags().GetBool("fail-on-read-error")
		if err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("expect-root") {
		projectConfig.Audit.ExpectedRoot, err = cmd.Flags().GetString("expect-root")
		if err != nil {
			return err
		}
	}

	// Update logging settings
	if cmd.Flags().Changed("log-level") {
		levelStr, err := cmd.Flags().GetString("log-level")
		if err != nil {
			return err
		}
		projectConfig.Logging.Level, err = zerolog.ParseLevel(strings.ToLower(levelStr))
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", levelStr)
		}
	}
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}

	return nil
}
