package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/errors"
)

// CheckCmd verifies storefront connectivity and model credentials.
var CheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify storefront and model credentials",
	Long: `check - Ping a storefront and confirm an Anthropic key is configured

No model call is made.

Examples:
  htsmatch check
  htsmatch check --target staging`,
	RunE: runCheck,
}

var checkTarget string

func init() {
	CheckCmd.Flags().StringVar(&checkTarget, "target", "", "Storefront to check (default: primary)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}

	failed := 0
	if err := cfg.ValidateCredentials(true, "", false); err != nil {
		pterm.Error.Println(err)
		failed++
	} else {
		pterm.Success.Printf("Anthropic key set, model %s\n", cfg.Anthropic.Model)
	}

	if err := cfg.ValidateCredentials(false, checkTarget, true); err != nil {
		pterm.Error.Println(err)
		failed++
	} else if err := pingTarget(cmd, cfg, checkTarget); err != nil {
		pterm.Error.Println(err)
		failed++
	}

	if failed > 0 {
		return errors.Newf("%d checks failed", failed)
	}
	return nil
}

func pingTarget(cmd *cobra.Command, cfg *am.Config, target string) error {
	client, _, err := newWooClient(cfg, target)
	if err != nil {
		return err
	}
	status, err := client.Ping(cmd.Context())
	if err != nil {
		return err
	}
	env := status.Environment
	pterm.Success.Printf("Connected to %s (%s): WooCommerce %s, WordPress %s\n",
		targetName(target), client, env.WCVersion, env.WPVersion)
	return nil
}
