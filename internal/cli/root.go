// Package cli wires the nutrisolve commands: solve (formula optimization),
// plan (multi-tank stock planning), catalog (fertilizer reference) and ec
// (conductivity estimation).
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kweller/nutrisolve/internal/chem"
	"github.com/kweller/nutrisolve/internal/config"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// appState carries per-invocation configuration and reference data, built in
// the root PersistentPreRunE and read by every subcommand.
type appState struct {
	cfg     *config.Config
	catalog *chem.Catalog
}

// state is set once per invocation in PersistentPreRunE.
var state appState //nolint:gochecknoglobals // Set once at startup, read by subcommands

// NewRootCmd creates the root Cobra command for the nutrisolve CLI.
// It wires up config loading, logging and the subcommands.
func NewRootCmd(ver string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nutrisolve",
		Short: "Hydroponic nutrient formula and stock-solution calculator",
		Long: "nutrisolve computes fertilizer recipes for hydroponic nutrient solutions:\n" +
			"it matches target N-P-K-Ca-Mg-S ratios and EC values against a catalog of\n" +
			"commercial salts, and plans multi-tank concentrated stocks that serve\n" +
			"several targets at once.",
		Version:       ver,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			state.cfg = cfg

			setupLogging(cmd, cfg)

			catalogPath, _ := cmd.Flags().GetString("catalog")
			if catalogPath == "" {
				catalogPath = cfg.Catalog.Path
			}
			if catalogPath != "" {
				state.catalog, err = chem.LoadCatalog(catalogPath)
				if err != nil {
					return err
				}
				logger.Debug().Str("path", catalogPath).Int("fertilizers", state.catalog.Len()).
					Msg("user catalog loaded")
			} else {
				state.catalog = chem.Builtin()
			}
			return nil
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("config", "", "config file path (default ~/.nutrisolve/config.yaml)")
	cmd.PersistentFlags().String("catalog", "", "fertilizer catalog YAML path (default built-in)")
	cmd.PersistentFlags().StringP("output", "o", "table", "output format: table or json")

	cmd.AddCommand(
		newSolveCmd(),
		newPlanCmd(),
		newCatalogCmd(),
		newECCmd(),
	)
	return cmd
}

// Execute runs the CLI and returns a process exit code.
func Execute(ver string) int {
	cmd := NewRootCmd(ver)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
