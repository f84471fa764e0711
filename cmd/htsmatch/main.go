package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/cmd/htsmatch/commands"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/logger"
)

var (
	configFlag   string
	jsonLogsFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "htsmatch",
	Short: "htsmatch - HTS tariff classification for WooCommerce catalogs",
	Long: `htsmatch - HTS tariff classification for WooCommerce catalogs.

Fetches products from a storefront, asks a language model for the 10-digit
Harmonized Tariff Schedule code, stores every answer with a disposition
(approved, pending or manual), and pushes approved codes back as product meta.

Available commands:
  classify   - Classify products from the selected categories
  summary    - Show match store statistics
  review     - List matches waiting for review
  export     - Write every match as CSV
  push       - Push approved codes to a storefront
  categories - Browse and select storefront categories
  estimate   - Project the cost and time of a run
  check      - Verify storefront and model credentials
  db         - Match store maintenance
  am         - Show and validate configuration

Examples:
  htsmatch categories list             # Show the category tree
  htsmatch classify --limit 20         # Classify 20 products
  htsmatch push --since 24h --dry-run  # Preview today's approved codes
  htsmatch summary --json              # Statistics as JSON`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonLogsFlag, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if err := am.LoadDotEnv(".env"); err != nil {
			logger.Warnw("Failed to read .env", logger.FieldError, err)
		}

		cfg, err := am.Load(configFlag)
		if err != nil {
			return errors.Wrap(err, "failed to load configuration")
		}
		// am validate reports problems itself; version needs no config
		if !skipValidation(cmd) {
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		cmd.SetContext(commands.WithConfig(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ./htsmatch.toml, then user config)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogsFlag, "json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ClassifyCmd)
	rootCmd.AddCommand(commands.SummaryCmd)
	rootCmd.AddCommand(commands.ReviewCmd)
	rootCmd.AddCommand(commands.ExportCmd)
	rootCmd.AddCommand(commands.PushCmd)
	rootCmd.AddCommand(commands.CategoriesCmd)
	rootCmd.AddCommand(commands.EstimateCmd)
	rootCmd.AddCommand(commands.CheckCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func skipValidation(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == commands.AmCmd || c == commands.VersionCmd {
			return true
		}
	}
	return false
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Cleanup()

	if err != nil {
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
