package cmd

import (
	"io"
	"os"

	"github.com/casks-mutters/state-delta-audit/audit/config"
	"github.com/casks-mutters/state-delta-audit/logging"
	"github.com/casks-mutters/state-delta-audit/logging/colors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// cmdLogger is the logger used by the cmd package. It logs to stderr until the project configuration is known, at
// which point configureLogging replaces it.
var cmdLogger = newDefaultCmdLogger()

func newDefaultCmdLogger() *logging.Logger {
	logger := logging.NewLogger(zerolog.InfoLevel)
	logger.AddWriter(os.Stderr, logging.UNSTRUCTURED, true)
	return logger.NewSubLogger("module", logging.CLI_SERVICE)
}

// configureLogging sets up logging.GlobalLogger and cmdLogger from the logging configuration. Console output goes to
// console, and a structured log file is created when a log directory is configured. Every event is tagged with a
// unique run ID. The returned function closes the log file, if any.
func configureLogging(loggingConfig config.LoggingConfig, console io.Writer) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}

	logger := logging.NewLogger(loggingConfig.Level)
	logger.AddWriter(console, logging.UNSTRUCTURED, !loggingConfig.NoColor)

	cleanup := func() {}
	var file *os.File
	if loggingConfig.LogDirectory != "" {
		var err error
		file, err = logging.CreateLogFile(loggingConfig.LogDirectory)
		if err != nil {
			return nil, err
		}
		logger.AddWriter(file, logging.STRUCTURED, false)
	}

	logging.GlobalLogger = logger.NewSubLogger("run", uuid.NewString())
	cmdLogger = logging.GlobalLogger.NewSubLogger("module", logging.CLI_SERVICE)

	// Stop logging to the file before closing it, so later events only reach the console
	if file != nil {
		cleanup = func() {
			logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
			cmdLogger.RemoveWriter(file, logging.STRUCTURED, false)
			_ = file.Close()
		}
	}
	return cleanup, nil
}
