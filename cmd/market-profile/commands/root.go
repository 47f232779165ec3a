package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/chrisw65/market-profile/internal/app"
	"github.com/chrisw65/market-profile/internal/components/telemetry"
	libtelemetry "github.com/chrisw65/market-profile/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool
)

// application is built before any subcommand runs.
var application app.App

var rootCmd = &cobra.Command{
	Use:   "market-profile",
	Short: "market-profile is a CLI for scraping Skool communities into marketing profiles.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(verbose)

		cfg, err := app.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
		application, err = app.New(cmd.Context(), cfg, telemetry.SlogAPI{}, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return application.Close()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "The config file to read.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging.")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
