package match

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/htsmatch/errors"
)

// ExportColumns is the CSV header written by WriteCSV.
var ExportColumns = []string{
	"product_id", "sku", "name", "hts_code", "hts_description", "confidence",
	"status", "material", "reasoning", "alternative_codes", "categories",
	"matched_at", "review_notes",
}

// WriteCSV writes records in the given order with list columns joined by ", ".
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	for _, r := range records {
		matchedAt := ""
		if !r.MatchedAt.IsZero() {
			matchedAt = r.MatchedAt.UTC().Format(time.RFC3339)
		}
		row := []string{
			strconv.FormatInt(r.ProductID, 10),
			r.SKU,
			r.Name,
			r.Code,
			r.CodeDescription,
			strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			string(r.Status),
			r.Material,
			r.Reasoning,
			strings.Join(r.AlternativeCodes, ", "),
			strings.Join(r.Categories, ", "),
			matchedAt,
			r.ReviewNotes,
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row for product %d", r.ProductID)
		}
	}

	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}
