// Package catalog defines the storefront records htsmatch reads and the
// metadata it writes back.
package catalog

// Ref is a category or tag reference embedded in a product.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Attribute is a product attribute such as Material or Color.
type Attribute struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Visible bool     `json:"visible"`
	Options []string `json:"options"`
}

// Dimensions are kept as the storefront's strings; units are store-wide settings.
type Dimensions struct {
	Length string `json:"length"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// IsZero reports whether no dimension is set.
func (d Dimensions) IsZero() bool {
	return d.Length == "" && d.Width == "" && d.Height == ""
}

// Product is a storefront product as returned by the catalog API.
// Fields the pipeline does not use are not decoded.
type Product struct {
	ID               int64       `json:"id"`
	SKU              string      `json:"sku"`
	Name             string      `json:"name"`
	Status           string      `json:"status,omitempty"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	Price            string      `json:"price"`
	Weight           string      `json:"weight"`
	Dimensions       Dimensions  `json:"dimensions"`
	Categories       []Ref       `json:"categories"`
	Tags             []Ref       `json:"tags"`
	Attributes       []Attribute `json:"attributes"`
}

// CategoryNames returns the names of the product's categories in storefront order.
func (p Product) CategoryNames() []string {
	return refNames(p.Categories)
}

// TagNames returns the names of the product's tags.
func (p Product) TagNames() []string {
	return refNames(p.Tags)
}

// IDs returns the product ids in order.
func IDs(products []Product) []int64 {
	ids := make([]int64, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	return ids
}

func refNames(refs []Ref) []string {
	if len(refs) == 0 {
		return nil
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names
}
