package hts

import (
	"html"
	"regexp"
	"strings"

	"github.com/teranos/htsmatch/catalog"
	"github.com/teranos/htsmatch/internal/util"
)

// Character budgets for free text sent to the model.
const (
	MaxDescriptionChars      = 1000
	MaxShortDescriptionChars = 500
)

var (
	markupPattern     = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[\s\x{00a0}]+`)
)

// Request is the bounded, model-ready projection of a product. It is built
// fresh for every attempt and never stored.
type Request struct {
	ProductID        int64
	SKU              string
	Name             string
	Description      string
	ShortDescription string
	Categories       []string
	Tags             []string
	Attributes       []string // "Material: Stoneware, Porcelain"
	Price            string
	Weight           string
	Dimensions       string // "L x W x H"
}

// Extract builds a Request from a product. It is pure and deterministic.
func Extract(p catalog.Product) Request {
	req := Request{
		ProductID:        p.ID,
		SKU:              strings.TrimSpace(p.SKU),
		Name:             CleanText(p.Name),
		Description:      util.Truncate(CleanText(p.Description), MaxDescriptionChars),
		ShortDescription: util.Truncate(CleanText(p.ShortDescription), MaxShortDescriptionChars),
		Categories:       p.CategoryNames(),
		Tags:             p.TagNames(),
		Price:            strings.TrimSpace(p.Price),
		Weight:           strings.TrimSpace(p.Weight),
	}

	for _, attr := range p.Attributes {
		if !attr.Visible || attr.Name == "" {
			continue
		}
		req.Attributes = append(req.Attributes, attr.Name+": "+strings.Join(attr.Options, ", "))
	}

	if !p.Dimensions.IsZero() {
		req.Dimensions = strings.Join([]string{
			orDash(p.Dimensions.Length), orDash(p.Dimensions.Width), orDash(p.Dimensions.Height),
		}, " x ")
	}
	return req
}

// CleanText strips markup, decodes entities and collapses whitespace.
func CleanText(s string) string {
	s = markupPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
