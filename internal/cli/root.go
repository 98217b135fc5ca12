// internal/cli/root.go
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kameel77/auto-scraper/internal/app"
	"github.com/kameel77/auto-scraper/internal/config"
	"github.com/kameel77/auto-scraper/internal/engine"
	"github.com/kameel77/auto-scraper/internal/ui"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "autoscraper",
	Short: "Collect vehicle offers from Polish dealer marketplaces",
	Long: `autoscraper discovers the listings of a supported marketplace and turns
each one into a canonical vehicle offer record.

Records can be printed, exported to JSON or CSV, stored as price snapshots in
SQLite or PostgreSQL, published to Kafka, and their images archived on disk.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Exit codes returned by Execute
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitInterrupted = 130
)

// Execute runs the command line under ctx and returns the process exit code
func Execute(ctx context.Context) int {
	cmd, err := rootCmd.ExecuteContextC(ctx)
	if a := GetAppFromCmd(cmd); a != nil {
		if cerr := a.Close(context.Background()); err == nil {
			err = cerr
		}
		SetApp(cmd, nil)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.Error("Error:"), err)
		return exitCode(err)
	}
	return ExitOK
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch engine.CodeOf(err) {
	case engine.ErrCodeConfig, engine.ErrCodeUnknownMarketplace:
		return ExitConfig
	}
	return ExitFailure
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if GetAppFromCmd(cmd) != nil {
			return nil
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return engine.NewEngineError(engine.ErrCodeConfig, "invalid configuration", err)
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		return nil
	}

	config.RegisterFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolP("help", "h", false, "Help for autoscraper")
	rootCmd.Flags().Bool("version", false, "Version for autoscraper")
	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
}

// appFrom returns the application built in PersistentPreRunE
func appFrom(cmd *cobra.Command) (*app.Application, error) {
	a := GetAppFromCmd(cmd)
	if a == nil {
		return nil, fmt.Errorf("application not initialized")
	}
	return a, nil
}
