// Package cli implements the loader command line: building the store locally and
// driving background rebuilds.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/quadro/internal/app"
)

// Exit codes returned by the loader binary.
const (
	ExitOK      = 0
	ExitFailure = 1
)

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Build the company/operator relationship store",
	Long: `loader reads the tab-delimited Receita Federal partner file, rebuilds the
"brazil" table with its company and operator indexes, and moves the finished
store to where the query service reads it.

Exit Codes:
  0  - Success
  1  - Build, relocation or queue operation failed`,
	SilenceUsage:      true,
	PersistentPreRunE: loadRuntime,
}

// state is shared by subcommands after configuration is loaded.
var state struct {
	cfg    *app.Config
	logger *slog.Logger
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func loadRuntime(cmd *cobra.Command, args []string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	state.cfg = cfg
	state.logger = app.NewStderrLogger(cfg)
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// logger returns the configured logger, honouring --verbose.
func logger(cmd *cobra.Command) *slog.Logger {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err == nil && verbose && state.cfg != nil {
		cfg := *state.cfg
		cfg.LogLevel = "debug"
		return app.NewStderrLogger(&cfg)
	}
	if state.logger == nil {
		return slog.Default()
	}
	return state.logger
}
