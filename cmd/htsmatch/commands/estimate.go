package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/am"
	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/catalog/woo"
	"github.com/teranos/htsmatch/pipeline"
	"github.com/teranos/htsmatch/sym"
)

// EstimateCmd projects the cost and duration of a classification run.
var EstimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: sym.Pulse + " Estimate the cost and time of a run",
	Long: sym.Pulse + ` estimate - Project tokens, cost and wall time before classifying

Without --products the count comes from the storefront: the published
products in each selected category, or the whole catalog when nothing is
selected. Products in several categories are counted once per category.

Examples:
  htsmatch estimate
  htsmatch estimate --products 5000`,
	RunE: runEstimate,
}

var estimateProducts int

func init() {
	EstimateCmd.Flags().IntVar(&estimateProducts, "products", 0, "Number of products (default: count from the storefront)")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		return err
	}

	n := estimateProducts
	if n <= 0 {
		if err := cfg.ValidateCredentials(false, "", true); err != nil {
			return err
		}
		n, err = countProducts(cmd, cfg)
		if err != nil {
			return err
		}
	}

	est := pipeline.Estimate(n, cfg.Anthropic.Model, pcfg)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s Estimate for %d products\n", sym.Pulse, est.Products)
	fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(out, "Model:          %s\n", est.Model)
	fmt.Fprintf(out, "Input tokens:   ~%d\n", est.InputTokens)
	fmt.Fprintf(out, "Output tokens:  ~%d\n", est.OutputTokens)
	fmt.Fprintf(out, "Cost:           ~$%.2f\n", est.CostUSD)
	fmt.Fprintf(out, "Duration:       ~%s\n", est.Duration.Round(time.Second))
	return nil
}

func countProducts(cmd *cobra.Command, cfg *am.Config) (int, error) {
	client, _, err := newWooClient(cfg, "")
	if err != nil {
		return 0, err
	}
	sel, err := catalog.LoadSelection(cfg.Catalog.SelectionFile)
	if err != nil {
		return 0, err
	}

	categories := sel.Categories
	if len(categories) == 0 {
		categories = []int64{0}
	}
	total := 0
	for _, id := range categories {
		page, err := client.ListProducts(cmd.Context(), woo.ListOptions{PerPage: 1, Status: woo.StatusPublish, Category: id})
		if err != nil {
			return 0, err
		}
		total += page.Total
	}
	return total, nil
}
