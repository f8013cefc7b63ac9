package layout

import (
	"github.com/wudi/reportkit/outline"
	"github.com/wudi/reportkit/template"
)

// Result is the page-by-page outcome of laying out a document.
type Result struct {
	Pages     []PageResult
	Bookmarks []outline.Entry
	// Anchors maps element anchor ids to their first placement.
	Anchors map[string]Anchor
}

// PageResult records what was placed on one page.
type PageResult struct {
	Number    int
	Section   int
	Width     float64
	Height    float64
	Bands     []LayoutBand
	Footnotes []Footnote
}

// LayoutBand is one placed band in template space.
type LayoutBand struct {
	Role   template.Role
	BandID string
	Key    string
	X      float64
	Y      float64
	Width  float64
	Height float64
	Column int
	// Split marks the part of a band placed before a page or column break.
	Split bool
}

// Footnote is numbered per page, from 1, in registration order.
type Footnote struct {
	Number  int
	Content string
}

// Anchor is a page index (zero based) and a PDF-space height.
type Anchor struct {
	Page int
	Y    float64
}

// PageCount is the number of pages laid out so far.
func (r *Result) PageCount() int { return len(r.Pages) }

// ContentBands returns the placed bands of a page that take part in content
// order.
func (p PageResult) ContentBands() []LayoutBand {
	var out []LayoutBand
	for _, b := range p.Bands {
		if b.Role.IsContent() {
			out = append(out, b)
		}
	}
	return out
}
