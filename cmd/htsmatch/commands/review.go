package commands

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/internal/util"
	"github.com/teranos/htsmatch/sym"
)

// ReviewCmd lists pending matches, most confident first.
var ReviewCmd = &cobra.Command{
	Use:   "review",
	Short: sym.Pending + " List matches waiting for review",
	Long: sym.Pending + ` review - Pending matches ordered by confidence

Examples:
  htsmatch review
  htsmatch review --limit 0 -v   # Everything, with the model's reasoning`,
	RunE: runReview,
}

var reviewLimit int

func init() {
	ReviewCmd.Flags().IntVar(&reviewLimit, "limit", 50, "Maximum rows to show (0 = all)")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	conn, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	records, err := store.PendingReview(cmd.Context(), reviewLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		pterm.Info.Println("Nothing waiting for review")
		return nil
	}

	data := pterm.TableData{{"ID", "SKU", "Name", "HTS code", "Confidence", "Material"}}
	for _, r := range records {
		data = append(data, []string{
			fmt.Sprint(r.ProductID),
			r.SKU,
			util.Truncate(r.Name, 40),
			r.Code,
			fmt.Sprintf("%.0f%%", r.Confidence*100),
			r.Material,
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}

	if verbosity(cmd) > 0 {
		for _, r := range records {
			pterm.Printf("\n%s %d %s\n", sym.Pending, r.ProductID, pterm.Bold.Sprint(r.Name))
			pterm.Printf("  %s\n", r.Reasoning)
			if len(r.AlternativeCodes) > 0 {
				pterm.Printf("  alternatives: %v\n", r.AlternativeCodes)
			}
		}
	}
	return nil
}
