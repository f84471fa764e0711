package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/sym"
)

// AmCmd groups the configuration commands.
var AmCmd = &cobra.Command{
	Use:   "am",
	Short: sym.AM + " Show and validate htsmatch configuration",
	Long: sym.AM + ` am - Show and validate htsmatch configuration

Configuration sources (in order of precedence):
1. --config file
2. Environment variables (HTSMATCH_* prefix, plus ANTHROPIC_API_KEY and WOOCOMMERCE_*)
3. .env in the working directory
4. Project config (htsmatch.toml, searched upward from the working directory)
5. User config (~/.htsmatch/config.toml)
6. System config (/etc/htsmatch/config.toml)
7. Default values

Examples:
  htsmatch am show                    # Show current configuration, secrets masked
  htsmatch am show --format json      # Show configuration as JSON
  htsmatch am get pipeline.batch_size # Get one value
  htsmatch am validate                # Validate current configuration`,
}

var amShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runAmShow,
}

var amGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a specific configuration value",
	Long:  "Get a specific configuration value using dot notation (e.g., database.path, pipeline.batch_size)",
	Args:  cobra.ExactArgs(1),
	RunE:  runAmGet,
}

var amValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate current configuration",
	RunE:  runAmValidate,
}

var amWhereCmd = &cobra.Command{
	Use:   "where",
	Short: "Show which config files are checked",
	RunE:  runAmWhere,
}

var configFormat string

func init() {
	amShowCmd.Flags().StringVar(&configFormat, "format", am.FormatTOML, "Output format: toml, json, yaml")

	AmCmd.AddCommand(amShowCmd)
	AmCmd.AddCommand(amGetCmd)
	AmCmd.AddCommand(amValidateCmd)
	AmCmd.AddCommand(amWhereCmd)
}

func runAmShow(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	data, err := am.Render(cfg, configFormat)
	if err != nil {
		return err
	}
	if configFormat != am.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout(), "# htsmatch configuration")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runAmGet(cmd *cobra.Command, args []string) error {
	key := args[0]

	configFile, _ := cmd.Flags().GetString("config")
	v, err := am.NewViper(configFile)
	if err != nil {
		return err
	}
	if !v.IsSet(key) {
		return fmt.Errorf("configuration key %q not found", key)
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Get(key))
	return nil
}

func runAmValidate(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration is valid")
	return nil
}

func runAmWhere(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Config files, lowest precedence first:")
	paths := am.ConfigPaths()
	if configFile, _ := cmd.Flags().GetString("config"); configFile != "" {
		paths = append(paths, configFile)
	}
	for _, path := range paths {
		mark := "✗"
		if _, err := os.Stat(path); err == nil {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %s\n", mark, path)
	}
	return nil
}
