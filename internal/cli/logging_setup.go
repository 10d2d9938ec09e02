package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kweller/nutrisolve/internal/config"
	"github.com/kweller/nutrisolve/internal/logging"
)

// setupLogging configures logging from config file, environment and CLI
// flags, attaches the logger to the command context, and sets the package
// logger.
func setupLogging(cmd *cobra.Command, cfg *config.Config) {
	loggingCfg := logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	}
	// Pretty console logs only make sense on an interactive terminal.
	if loggingCfg.Format == "" && !isTerminal(os.Stderr) {
		loggingCfg.Format = "json"
	}

	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = "console"
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		loggingCfg.Level = level
	}

	base := logging.NewLogger(loggingCfg)
	logger = logging.ComponentLogger(base, "cli")

	cmd.SetContext(logging.WithContext(cmd.Context(), base))
	logger.Debug().Str("command", cmd.Name()).Msg("command started")
}
