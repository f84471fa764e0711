// Package sym defines the glyphs used in CLI output so every command marks
// the same things the same way.
package sym

// Subsystem glyphs.
const (
	AM    = "≡" // configuration
	DB    = "⊔" // match store
	Pulse = "꩜" // batch run
	Push  = "⇪" // storefront sync
	Tree  = "⋔" // category tree
)

// Disposition glyphs, keyed by match status.
const (
	Approved = "✓"
	Pending  = "◐"
	Manual   = "⚑"
	Rejected = "✗"
	Unknown  = "?"
)

var statusGlyphs = map[string]string{
	"approved": Approved,
	"pending":  Pending,
	"manual":   Manual,
	"rejected": Rejected,
}

// ForStatus returns the glyph for a match status string.
func ForStatus(status string) string {
	if g, ok := statusGlyphs[status]; ok {
		return g
	}
	return Unknown
}
