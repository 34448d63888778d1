package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/casks-mutters/state-delta-audit/audit"
	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/chain/state"
	"github.com/casks-mutters/state-delta-audit/cmd/exitcodes"
	"github.com/casks-mutters/state-delta-audit/logging"
	"github.com/casks-mutters/state-delta-audit/logging/colors"
	"github.com/casks-mutters/state-delta-audit/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// auditCmd represents the command provider for storage audits
var auditCmd = &cobra.Command{
	Use:   "audit [address blockA blockB]",
	Short: "Compares contract storage slots between two blocks",
	Long: `Reads the configured storage slots of a contract at two blocks, reports which slots changed and prints a
fingerprint of the changed slots. Blocks may be decimal or hex heights, tags (latest, finalized, safe, pending,
earliest) or block hashes.`,
	Args:              cmdValidateAuditArgs,
	ValidArgsFunction: cmdValidAuditArgs,
	RunE:              cmdRunAudit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the audit command
	addAuditFlags(auditCmd)

	// Add the audit command and its associated flags to the root command
	rootCmd.AddCommand(auditCmd)
}

// cmdValidAuditArgs will return which flags are valid for dynamic completion for the audit command
func cmdValidAuditArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string

	// Examine all the flags, and add any flags that have not been set in the current command line
	// to a list of unused flags
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateAuditArgs makes sure that either no positional arguments or exactly three are provided
func cmdValidateAuditArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 3 {
		err := errors.Errorf("audit accepts either no positional arguments or exactly three (address blockA blockB), got %d", len(args))
		cmdLogger.Error("Failed to validate args to the audit command", err)
		return err
	}
	return nil
}

// cmdRunAudit executes the CLI audit command and navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (state-audit.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If state-audit.json can't be found, use the default project configuration.
// Positional arguments and flags are then applied on top of the configuration.
func cmdRunAudit(cmd *cobra.Command, args []string) error {
	projectConfig, err := loadProjectConfig(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the audit command", err)
		return err
	}

	// Update the project configuration given whatever arguments and flags were set using the CLI
	err = updateProjectConfigWithAuditFlags(cmd, args, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the audit command", err)
		return err
	}

	// Set up logging now that the configuration is known
	closeLogs, err := configureLogging(projectConfig.Logging, os.Stderr)
	if err != nil {
		cmdLogger.Error("Failed to set up logging", err)
		return err
	}
	defer closeLogs()

	// Stop reading storage on keyboard interrupts
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runAudit(ctx, projectConfig, os.Stdout)
}

// loadProjectConfig reads the project configuration from --config or the default config file, or falls back to the
// default project configuration.
func loadProjectConfig(cmd *cobra.Command) (*config.ProjectConfig, error) {
	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If --config was not used, look for `state-audit.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	exists, err := utils.FileExists(configPath)
	if err != nil {
		return nil, err
	}

	// Possibility #1: File was found
	if exists {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		return config.ReadProjectConfigFromFile(configPath)
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed {
		return nil, errors.Errorf("unable to find the config file at %v", configPath)
	}

	// Possibility #3: --config flag was not used and state-audit.json was not found, so use the default project config
	return config.GetDefaultProjectConfig(), nil
}

// runAudit validates the project configuration, connects to the RPC endpoint, audits the configured slots and writes
// the report to the configured file, or to stdout if none is configured.
func runAudit(ctx context.Context, projectConfig *config.ProjectConfig, stdout io.Writer) error {
	err := projectConfig.ValidateAudit()
	if err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return err
	}

	// Comparing a block to itself cannot produce a change, so skip the network entirely
	auditConfig := projectConfig.Audit
	if auditConfig.BlockA.Equal(auditConfig.BlockB) {
		cmdLogger.Info("Both blocks are ", colors.Bold, auditConfig.BlockA, colors.Reset, ", nothing to compare")
		return nil
	}

	err = projectConfig.ValidateConnection()
	if err != nil {
		cmdLogger.Error("Invalid project configuration", err)
		return err
	}

	// Connect to the endpoint, failing fast if it is unreachable
	reader, err := state.NewRPCStorageReader(ctx, projectConfig.RPC, projectConfig.Cache.Directory, logging.GlobalLogger)
	if err != nil {
		cmdLogger.Error("Failed to connect to the RPC endpoint", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeConnectionError)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			cmdLogger.Warn("Failed to close the RPC storage reader", err)
		}
	}()
	cmdLogger.Info("Connected to chain ID ", colors.Bold, reader.ChainID(), colors.Reset)
	if projectConfig.Cache.Directory != "" {
		cmdLogger.Info("Storage reads at fixed blocks are cached in ", colors.Bold, projectConfig.Cache.Directory, colors.Reset)
	}

	// Audit the slots. The address was validated above.
	address, _ := utils.HexStringToAddress(auditConfig.Address)
	auditor := audit.NewAuditor(reader, logging.GlobalLogger)
	auditor.Events.SlotAudited.Subscribe(func(event audit.SlotAuditedEvent) error {
		cmdLogger.Debug("Audited slot ", event.Result.Slot, " (", event.Index+1, "/", event.Total, "): changed=", event.Result.Changed)
		return nil
	})
	cmdLogger.Info("Auditing ", colors.Bold, len(auditConfig.Slots), colors.Reset, " slot(s) of ", colors.Bold, address.Hex(),
		colors.Reset, " between blocks ", colors.Bold, auditConfig.BlockA, colors.Reset, " and ", colors.Bold, auditConfig.BlockB, colors.Reset)
	start := time.Now()
	report := auditor.AuditDiff(ctx, address, auditConfig.Slots, auditConfig.BlockA, auditConfig.BlockB)
	if utils.CheckContextDone(ctx) {
		err = errors.New("audit interrupted before completion")
		cmdLogger.Error("Audit was not completed", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Write the report
	err = writeReport(report, projectConfig.Output, stdout)
	if err != nil {
		cmdLogger.Error("Failed to write the audit report", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Summarize the audit
	summary := logging.NewLogBuffer()
	summary.Append("Audit complete in ", time.Since(start).Round(time.Millisecond), ": ")
	summary.Append(colors.Bold, len(report.ChangedSlots), colors.Reset, " changed slot(s), root ", colors.Bold, report.Fingerprint, colors.Reset)
	if report.FailedReads() > 0 {
		summary.Append(", ", colors.Yellow, report.FailedReads(), " failed read(s)", colors.Reset)
	}
	cmdLogger.Info(summary)

	// Check the fingerprint against the expected one, if any
	if auditConfig.ExpectedRoot != "" {
		expected, _ := audit.ParseFingerprint(auditConfig.ExpectedRoot)
		if !expected.Equal(report.Fingerprint) {
			err = errors.Errorf("fingerprint %s does not match the expected %s", report.Fingerprint, expected)
			cmdLogger.Error("Fingerprint check failed", err)
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeFingerprintMismatch)
		}
		cmdLogger.Info("Fingerprint matches the expected root")
	}

	// Fail on read errors if requested
	if auditConfig.FailOnReadError && report.FailedReads() > 0 {
		err = errors.Errorf("%d storage read(s) failed and were substituted with zero values", report.FailedReads())
		cmdLogger.Error("Audit is incomplete", err)
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeReadFailures)
	}

	return nil
}

// writeReport renders the report to the configured output file, or to stdout if none is configured.
func writeReport(report *audit.AuditReport, outputConfig config.OutputConfig, stdout io.Writer) error {
	if outputConfig.File == "" {
		return audit.WriteReport(stdout, report, outputConfig.Format)
	}

	file, err := utils.CreateFile(filepath.Dir(outputConfig.File), filepath.Base(outputConfig.File))
	if err != nil {
		return err
	}
	defer file.Close()

	err = audit.WriteReport(file, report, outputConfig.Format)
	if err != nil {
		return err
	}
	cmdLogger.Info("Report written to: ", colors.Bold, outputConfig.File, colors.Reset)
	return errors.WithStack(file.Close())
}
