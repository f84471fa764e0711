package commands

import (
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/htsmatch/errors"
	"github.com/teranos/htsmatch/match"
	"github.com/teranos/htsmatch/sym"
)

// ExportCmd writes every stored match as CSV.
var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: sym.DB + " Export all matches as CSV",
	Long: sym.DB + ` export - Every match, ordered by status then confidence

Examples:
  htsmatch export                       # hts_matches.csv
  htsmatch export --output - | less     # stdout`,
	RunE: runExport,
}

var exportOutput string

func init() {
	ExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "hts_matches.csv", "Output file, or - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := configFrom(cmd)
	if err != nil {
		return err
	}
	conn, store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer conn.Close()

	records, err := store.All(cmd.Context())
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if exportOutput != "-" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", exportOutput)
		}
		defer f.Close()
		w = f
	}

	if err := match.WriteCSV(w, records); err != nil {
		return err
	}
	if exportOutput != "-" {
		pterm.Success.Printf("Exported %d matches to %s\n", len(records), exportOutput)
	}
	return nil
}
