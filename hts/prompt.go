package hts

import (
	"strings"
	"text/template"

	"github.com/teranos/htsmatch/errors"
)

var promptTemplate = template.Must(template.New("classify").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`You are a licensed customs broker classifying products under the United States Harmonized Tariff Schedule (HTS).

Classify this product to a 10-digit HTS code.

Product name: {{.Name}}
{{- if .SKU}}
SKU: {{.SKU}}{{end}}
{{- if .Categories}}
Categories: {{join .Categories ", "}}{{end}}
{{- if .Tags}}
Tags: {{join .Tags ", "}}{{end}}
{{- if .Attributes}}
Attributes: {{join .Attributes "; "}}{{end}}
{{- if .Price}}
Price: {{.Price}}{{end}}
{{- if .Weight}}
Weight: {{.Weight}}{{end}}
{{- if .Dimensions}}
Dimensions: {{.Dimensions}}{{end}}
{{- if .ShortDescription}}

Short description:
{{.ShortDescription}}{{end}}
{{- if .Description}}

Description:
{{.Description}}{{end}}

Base the classification on what the product is made of and what it is used for.
Respond with a single JSON object and nothing else:
{
  "hts_code": "DDDD.DD.DDDD",
  "hts_description": "official description of the heading and subheading",
  "confidence": 0.0,
  "reasoning": "one or two sentences",
  "material": "primary material",
  "alternative_codes": ["DDDD.DD.DDDD"]
}
confidence is a number between 0 and 1. Use a lower value when the description is vague or several headings could apply.`))

// RenderPrompt renders the classification prompt for req.
func RenderPrompt(req Request) (string, error) {
	var b strings.Builder
	if err := promptTemplate.Execute(&b, req); err != nil {
		return "", errors.Wrap(err, "render classification prompt")
	}
	return b.String(), nil
}
