package commands

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/catalogsync"
	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/sym"
)

// PushCmd writes approved codes to a storefront as product meta.
var PushCmd = &cobra.Command{
	Use:   "push",
	Short: sym.Push + " Push approved HTS codes to a storefront",
	Long: sym.Push + ` push - Write approved codes back as product meta

Each approved match is written as _hts_code, _hts_confidence and
_hts_updated (plus _country_of_origin when the target sets one). The
unclassified fallback code is never pushed. A preview is shown first and
nothing is written until it is confirmed.

Examples:
  htsmatch push --since 24h            # Approved in the last day
  htsmatch push --ids 101,102 --yes    # Two products, no prompt
  htsmatch push --target staging --dry-run`,
	RunE: runPush,
}

var (
	pushSince  string
	pushIDs    string
	pushTarget string
	pushDryRun bool
	pushYes    bool
)

func init() {
	PushCmd.Flags().StringVar(&pushSince, "since", "", "Only matches classified since (24h, 7d, 2024-05-01, RFC3339)")
	PushCmd.Flags().StringVar(&pushIDs, "ids", "", "Comma-separated product ids")
	PushCmd.Flags().StringVar(&pushTarget, "target", "", "Storefront to push to (default: primary)")
	PushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "Walk the push without writing to the storefront")
	PushCmd.Flags().BoolVarP(&pushYes, "yes", "y", false, "Skip the confirmation prompt")
	PushCmd.MarkFlagsMutuallyExclusive("since", "ids")
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	scope, err := pushScope()
	if err != nil {
		return err
	}
	if err := cfg.ValidateCredentials(false, pushTarget, true); err != nil {
		return err
	}

	conn, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	engine, err := newSyncEngine(cfg, store, pushTarget)
	if err != nil {
		return err
	}

	preview, err := engine.Preview(ctx, scope)
	if err != nil {
		return err
	}
	printPreview(preview)
	if len(preview.Items) == 0 {
		return nil
	}

	confirmed := pushYes
	if !confirmed {
		prompt := fmt.Sprintf("Push %d codes to %s?", len(preview.Items), preview.Target)
		if pushDryRun {
			prompt = fmt.Sprintf("Dry-run %d codes against %s?", len(preview.Items), preview.Target)
		}
		confirmed, err = pterm.DefaultInteractiveConfirm.Show(prompt)
		if err != nil {
			return errors.Wrap(err, "confirmation prompt failed")
		}
	}
	if !confirmed {
		pterm.Info.Println("Push cancelled")
		return nil
	}

	result, err := engine.Push(ctx, scope, catalogsync.PushOptions{Confirm: true, DryRun: pushDryRun})
	if result != nil {
		printPushResult(result)
	}
	return err
}

func pushScope() (catalogsync.Scope, error) {
	switch {
	case pushSince != "":
		since, err := catalogsync.ParseSince(pushSince, time.Now())
		if err != nil {
			return catalogsync.Scope{}, err
		}
		return catalogsync.Since(since), nil
	case pushIDs != "":
		ids, err := catalogsync.ParseIDs(pushIDs)
		if err != nil {
			return catalogsync.Scope{}, err
		}
		return catalogsync.IDs(ids...), nil
	default:
		return catalogsync.All(), nil
	}
}

func printPreview(p *catalogsync.Preview) {
	pterm.Printf("%s %d approved codes for %s (%s)\n", sym.Push, len(p.Items), pterm.LightCyan(p.Target), p.Scope)
	if len(p.Items) > 0 {
		data := pterm.TableData{{"ID", "SKU", "Name", "HTS code", "Confidence", "Matched"}}
		for _, it := range p.Items {
			data = append(data, []string{
				fmt.Sprint(it.ProductID),
				it.SKU,
				it.Name,
				it.Code,
				fmt.Sprintf("%.0f%%", it.Confidence*100),
				it.MatchedAt.Local().Format("2006-01-02 15:04"),
			})
		}
		_ = pterm.DefaultTable.WithHasHeader().WithData(data).Render()
	}
	if len(p.Skipped) > 0 {
		pterm.Warning.Printf("%d approved matches carry the unclassified code and will not be pushed\n", len(p.Skipped))
	}
}

func printPushResult(r *catalogsync.PushResult) {
	verb := "Updated"
	if r.DryRun {
		verb = "Would update"
	}
	pterm.Success.Printf("%s %d of %d products on %s\n", verb, r.Updated, r.Attempted, r.Target)
	if r.Skipped > 0 {
		pterm.Info.Printf("%d skipped (no longer approved or unclassified)\n", r.Skipped)
	}
	if r.Failed > 0 {
		pterm.Error.Printf("%d failed:\n", r.Failed)
		for _, f := range r.Failures {
			pterm.Printf("    %d  %s  %v\n", f.ProductID, f.SKU, f.Err)
		}
	}
}
