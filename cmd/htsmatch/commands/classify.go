package commands

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/catalog/woo"
	"github.com/teranos/htsmatch/catalogsync"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/logger"
	"github.com/teranos/htsmatch/match"
	"github.com/teranos/htsmatch/pipeline"
	"github.com/teranos/htsmatch/sym"
)

// ClassifyCmd runs the batch processor over storefront products.
var ClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: sym.Pulse + " Classify storefront products",
	Long: sym.Pulse + ` classify - Fetch products and assign HTS codes

Products are fetched from the categories saved with 'categories select'
(or every published product with --all), classified one at a time, and
stored with a disposition. Failed model calls store the unclassified
fallback code for manual review.

Examples:
  htsmatch classify --limit 20                # First 20 products of the selection
  htsmatch classify --new-only                # Skip products already in the store
  htsmatch classify --category 12,15 --push   # Classify two categories and push approvals`,
	RunE: runClassify,
}

var (
	classifyLimit    int
	classifyAll      bool
	classifyCategory []int64
	classifyNewOnly  bool
	classifyMaxPages int
	classifyPush     bool
	classifyJSON     bool
)

func init() {
	ClassifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "Maximum number of products to classify (0 = no limit)")
	ClassifyCmd.Flags().BoolVar(&classifyAll, "all", false, "Ignore the category selection and fetch every published product")
	ClassifyCmd.Flags().Int64SliceVar(&classifyCategory, "category", nil, "Category ids to fetch instead of the saved selection")
	ClassifyCmd.Flags().BoolVar(&classifyNewOnly, "new-only", false, "Only classify products with no stored match")
	ClassifyCmd.Flags().IntVar(&classifyMaxPages, "max-pages", 0, "Maximum pages to fetch per category (0 = all)")
	ClassifyCmd.Flags().BoolVar(&classifyPush, "push", false, "Push codes approved in this run to the primary storefront")
	ClassifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "Emit progress as JSON lines")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(true, "", true); err != nil {
		return err
	}

	categories, err := classifyCategories(cfg.Catalog.SelectionFile)
	if err != nil {
		return err
	}

	conn, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	client, _, err := newWooClient(cfg, "")
	if err != nil {
		return err
	}
	classifier, err := newClassifier(cfg)
	if err != nil {
		return err
	}
	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		return err
	}

	// --limit applies after --new-only, so fetch everything when filtering
	fetch := woo.FetchOptions{Categories: categories, MaxPages: classifyMaxPages}
	if !classifyNewOnly {
		fetch.Limit = classifyLimit
	}
	products, err := client.FetchProducts(ctx, fetch)
	if err != nil {
		return err
	}

	if classifyNewOnly {
		products, err = onlyUnclassified(ctx, store, products)
		if err != nil {
			return err
		}
		if classifyLimit > 0 && len(products) > classifyLimit {
			products = products[:classifyLimit]
		}
	}

	if len(products) == 0 {
		if !classifyJSON {
			pterm.Info.Println("No products to classify")
		}
		return nil
	}

	var emitter pipeline.Emitter = pipeline.NewCLIEmitter(verbosity(cmd))
	if classifyJSON {
		emitter = pipeline.NewJSONEmitter(os.Stdout)
	}

	processor, err := pipeline.NewProcessor(classifier, store, pcfg, logger.ComponentLogger("pipeline"))
	if err != nil {
		return err
	}
	run, err := processor.WithEmitter(emitter).Process(ctx, products)
	if err != nil {
		return errors.Wrapf(err, "run %s stopped after %d of %d products", run.RunID, run.Attempted, len(products))
	}

	if !classifyPush {
		return nil
	}
	ids := run.ApprovedIDs()
	if len(ids) == 0 {
		if !classifyJSON {
			pterm.Info.Println("Nothing approved in this run, skipping push")
		}
		return nil
	}
	engine, err := newSyncEngine(cfg, store, "")
	if err != nil {
		return err
	}
	result, err := engine.Push(ctx, catalogsync.IDs(ids...), catalogsync.PushOptions{Confirm: true})
	if err != nil {
		return err
	}
	if !classifyJSON {
		printPushResult(result)
	}
	return nil
}

func classifyCategories(selectionFile string) ([]int64, error) {
	if classifyAll {
		return nil, nil
	}
	if len(classifyCategory) > 0 {
		return classifyCategory, nil
	}
	sel, err := catalog.LoadSelection(selectionFile)
	if err != nil {
		return nil, err
	}
	if len(sel.Categories) == 0 {
		return nil, errors.WithHint(
			errors.NewConfigError("no categories selected"),
			"run 'htsmatch categories select --add <id>' or pass --all")
	}
	return sel.Categories, nil
}

func onlyUnclassified(ctx context.Context, store *match.Store, products []catalog.Product) ([]catalog.Product, error) {
	missing, err := store.MissingClassification(ctx, catalog.IDs(products))
	if err != nil {
		return nil, err
	}
	keep := make(map[int64]bool, len(missing))
	for _, id := range missing {
		keep[id] = true
	}
	out := products[:0]
	for _, p := range products {
		if keep[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}
