package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/tokenfuzz/fuzzing/config"
	"github.com/crytic/tokenfuzz/logging"
	"github.com/crytic/tokenfuzz/logging/colors"
	"github.com/crytic/tokenfuzz/utils"
)

// setupGlobalLogger replaces the global logger with one at the configured level, writing to stdout and, if a log
// directory is configured, to a structured log file within it. This must run before any component creates its
// sub-logger.
// Returns a function which closes the log file, or an error if the log file could not be created.
func setupGlobalLogger(loggingConfig config.LoggingConfig) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}

	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level)
	logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !loggingConfig.NoColor)
	cmdLogger.SetLevel(loggingConfig.Level)

	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}

	logFileName := fmt.Sprintf("log-%d.log", time.Now().Unix())
	logFile, err := utils.CreateFile(loggingConfig.LogDirectory, logFileName)
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(logFile, logging.STRUCTURED, false)
	cmdLogger.Info("Writing structured logs to ", colors.Bold, filepath.Join(loggingConfig.LogDirectory, logFileName), colors.Reset)

	return func() {
		logging.GlobalLogger.RemoveWriter(logFile, logging.STRUCTURED, false)
		_ = logFile.Close()
	}, nil
}
