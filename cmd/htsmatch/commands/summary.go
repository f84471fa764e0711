package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/ai/anthropic"
	"github.com/teranos/htsmatch/match"
	"github.com/teranos/htsmatch/sym"
)

// SummaryCmd prints match store statistics.
var SummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: sym.DB + " Show classification statistics",
	Long: sym.DB + ` summary - Match counts by status and the last 24 hours of model usage

Examples:
  htsmatch summary
  htsmatch summary --json`,
	RunE: runSummary,
}

var summaryJSON bool

func init() {
	SummaryCmd.Flags().BoolVar(&summaryJSON, "json", false, "Output as JSON")
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	conn, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	s, err := store.Summary(cmd.Context())
	if err != nil {
		return err
	}

	if summaryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	printSummary(s, cfg.Anthropic.Model)
	return nil
}

func printSummary(s match.Summary, model string) {
	fmt.Printf("%s Classification Summary\n", sym.DB)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Total products:     %d\n", s.Total)
	fmt.Printf("  %s Approved:        %d\n", sym.Approved, s.Approved)
	fmt.Printf("  %s Pending review:  %d\n", sym.Pending, s.Pending)
	fmt.Printf("  %s Needs manual:    %d\n", sym.Manual, s.NeedsManual)
	if s.Rejected > 0 {
		fmt.Printf("  %s Rejected:        %d\n", sym.Rejected, s.Rejected)
	}
	fmt.Printf("Average confidence: %.1f%%\n", s.AvgConfidence*100)
	fmt.Printf("Unique HTS codes:   %d\n", s.UniqueCodes)
	fmt.Println()

	fmt.Println("Last 24 hours")
	fmt.Printf("  API calls:        %d\n", s.APICalls24h)
	fmt.Printf("  Avg call time:    %s\n", s.AvgProcessingTime.Round(time.Millisecond))
	fmt.Printf("  Tokens in/out:    %d / %d\n", s.InputTokens24h, s.OutputTokens24h)
	fmt.Printf("  Est. cost:        $%.4f (%s)\n", anthropic.CalculateCost(model, s.InputTokens24h, s.OutputTokens24h), model)
	if s.Fallbacks24h > 0 {
		pterm.Warning.Printf("%d model failures stored as unclassified\n", s.Fallbacks24h)
	}
}
