package layout

import (
	"fmt"

	"github.com/wudi/reportkit/bands"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/outline"
	"github.com/wudi/reportkit/template"
)

// pageState is the running geometry of the open page. All heights are in
// template space, measured from the top edge.
type pageState struct {
	page  *builder.Page
	index int
	scope expr.Scope
	tf    coords.Transform

	contentTop float64
	footerTop  float64
	colHeaderH float64
	colFooterH float64
	col        int
	colY       []float64
	colStart   []float64
	placed     int
	footnotes  []pendingFootnote
	footKeys   map[string]int
}

// contentBottom is the lowest y content may reach, before footnotes.
func (p *pageState) contentBottom() float64 { return p.footerTop - p.colFooterH }

func (r *sectionRun) result() *PageResult { return &r.e.result.Pages[r.page.index] }

// openPage starts a page: background bands, the page header, the column
// headers and the footer reservation.
func (r *sectionRun) openPage() error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	e := r.e
	s := r.setup
	m := s.Margins
	index := len(e.result.Pages)
	p := &pageState{
		page:     e.doc.NewPage(s.Width, s.Height),
		index:    index,
		scope:    r.ex.Base.WithPage(index+1, e.totalPages),
		tf:       coords.Transform{PageHeight: s.Height},
		footKeys: map[string]int{},
	}
	r.page = p
	e.result.Pages = append(e.result.Pages, PageResult{Number: index + 1, Section: r.index, Width: s.Width, Height: s.Height})
	contentW := s.Width - m.Left - m.Right

	for _, inst := range r.ex.Background {
		mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, s.Width)
		if err != nil {
			return err
		}
		if mb == nil {
			continue
		}
		mb.height = max(mb.height, s.Height)
		r.mergeFootnotes(mb)
		if err := r.render(mb, 0, 0, s.Width, -1, false); err != nil {
			return err
		}
	}

	y := m.Top
	for _, inst := range r.ex.PageHeader {
		mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, contentW)
		if err != nil {
			return err
		}
		if mb == nil {
			continue
		}
		r.mergeFootnotes(mb)
		if err := r.render(mb, m.Left, y, contentW, -1, false); err != nil {
			return err
		}
		y += mb.height
	}
	p.contentTop = y

	_, pfH, err := r.structural(r.ex.PageFooter, contentW)
	if err != nil {
		return err
	}
	p.footerTop = s.Height - m.Bottom - pfH

	_, p.colFooterH, err = r.structural(r.ex.ColumnFooter, r.cols.Widths[0])
	if err != nil {
		return err
	}

	p.colY = make([]float64, r.cols.Count())
	p.colStart = make([]float64, r.cols.Count())
	for c := range p.colY {
		cy := p.contentTop
		for _, inst := range r.ex.ColumnHeader {
			mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, r.cols.Widths[c])
			if err != nil {
				return err
			}
			if mb == nil {
				continue
			}
			r.mergeFootnotes(mb)
			if err := r.render(mb, m.Left+r.cols.Offsets[c], cy, r.cols.Widths[c], c, false); err != nil {
				return err
			}
			cy += mb.height
		}
		p.colY[c] = cy
		p.colStart[c] = cy
		p.colHeaderH = max(p.colHeaderH, cy-p.contentTop)
	}
	if p.contentBottom()-p.contentTop-p.colHeaderH <= 0 {
		return &errs.ContentFitError{
			Band:      fmt.Sprintf("sections[%d] page furniture", r.index),
			Required:  s.Height - m.Top - m.Bottom - (p.contentBottom() - p.contentTop - p.colHeaderH),
			Available: s.Height - m.Top - m.Bottom,
		}
	}
	r.log.Debug("page opened", observability.Int("page", index+1), observability.Float("contentTop", p.contentTop), observability.Float("footerTop", p.footerTop))
	return nil
}

// closePage places column footers, the footnote block and the page footer,
// or the last-page footer when last is set and one is defined. Column
// footers and footnotes stack directly above whichever footer is drawn.
func (r *sectionRun) closePage(last bool) error {
	p := r.page
	s := r.setup
	m := s.Margins
	contentW := s.Width - m.Left - m.Right
	footH := r.footnoteHeight(p.footnotes)

	footers := r.ex.PageFooter
	footerTop := p.footerTop
	if last {
		lpf, lpfH, err := r.structural(r.ex.LastPageFooter, contentW)
		if err != nil {
			return err
		}
		if len(lpf) > 0 {
			footers = lpf
			footerTop = s.Height - m.Bottom - lpfH
		}
	}

	for c := range p.colY {
		y := footerTop - footH - p.colFooterH
		for _, inst := range r.ex.ColumnFooter {
			mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, r.cols.Widths[c])
			if err != nil {
				return err
			}
			if mb == nil {
				continue
			}
			if err := r.render(mb, m.Left+r.cols.Offsets[c], y, r.cols.Widths[c], c, false); err != nil {
				return err
			}
			y += mb.height
		}
	}

	if err := r.renderFootnotes(footerTop-footH, m.Left, contentW); err != nil {
		return err
	}

	y := footerTop
	for _, inst := range footers {
		mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, contentW)
		if err != nil {
			return err
		}
		if mb == nil {
			continue
		}
		if err := r.render(mb, m.Left, y, contentW, -1, false); err != nil {
			return err
		}
		y += mb.height
	}
	res := r.result()
	for _, f := range p.footnotes {
		res.Footnotes = append(res.Footnotes, Footnote{Number: f.number, Content: f.content})
	}
	r.log.Debug("page closed",
		observability.Int("page", p.index+1),
		observability.Int("bands", len(res.Bands)),
		observability.Int("footnotes", len(p.footnotes)))
	return nil
}

// pageInstance rebinds a structural instance to the current page counters.
func (r *sectionRun) pageInstance(inst bands.Instance) bands.Instance {
	inst.Scope = inst.Scope.WithPage(r.page.index+1, r.e.totalPages)
	return inst
}

// structural returns the visible instances of a structural list on the
// current page and their total height.
func (r *sectionRun) structural(list []bands.Instance, width float64) ([]bands.Instance, float64, error) {
	var visible []bands.Instance
	total := 0.0
	for _, inst := range list {
		mb, err := r.measureBand(&work{inst: r.pageInstance(inst)}, width)
		if err != nil {
			return nil, 0, err
		}
		if mb == nil {
			continue
		}
		visible = append(visible, inst)
		total += mb.height
	}
	return visible, total, nil
}

// commit renders a content band at the cursor of column col.
func (r *sectionRun) commit(m *measuredBand, col int, split bool) error {
	p := r.page
	x := r.setup.Margins.Left + r.cols.Offsets[col]
	y := p.colY[col]
	r.mergeFootnotes(m)
	if err := r.render(m, x, y, r.cols.Widths[col], col, split); err != nil {
		return err
	}
	if m.carry == nil && m.inst.Band.Bookmark != "" {
		title, err := r.e.adapter.Resolve(r.ctx, m.inst.Band.Bookmark, m.scope)
		if err != nil {
			return errs.Config(m.inst.Path+".bookmark", err, "")
		}
		r.e.result.Bookmarks = append(r.e.result.Bookmarks, outline.Entry{Title: title, Page: p.index, Y: p.tf.Y(y), Level: 1})
	}
	p.colY[col] = y + m.height
	p.placed++
	r.log.Debug("band placed",
		observability.String("band", m.inst.ID()),
		observability.String("role", string(m.inst.Band.Role)),
		observability.Int("page", p.index+1),
		observability.Int("column", col),
		observability.Float("y", y),
		observability.Float("height", m.height),
		observability.String("state", r.state.String()))
	return nil
}

// render draws a measured band at (x, y) and records it on the page.
// Footer bands draw after the footnote block, so they cannot add notes.
func (r *sectionRun) render(m *measuredBand, x, y, width float64, col int, split bool) error {
	p := r.page
	var sink noteSink
	if !isFooter(m.inst.Band.Role) {
		sink = r.pageNotes(m.inst.Key)
	}
	for _, el := range m.elems {
		box := coords.Rect{X: x + el.prep.el.X, Y: y + el.y, W: el.width, H: el.height}
		if err := r.e.renderElement(r.ctx, p.page, p.tf, box, el, sink); err != nil {
			return err
		}
		if a := el.prep.el.Anchor; a != "" {
			if _, seen := r.e.result.Anchors[a]; !seen {
				r.e.result.Anchors[a] = Anchor{Page: p.index, Y: p.tf.Y(box.Y)}
			}
		}
	}
	res := r.result()
	res.Bands = append(res.Bands, LayoutBand{
		Role:   m.inst.Band.Role,
		BandID: m.inst.Band.ID,
		Key:    m.inst.Key,
		X:      x,
		Y:      y,
		Width:  width,
		Height: m.height,
		Column: col,
		Split:  split,
	})
	return nil
}

func isFooter(role template.Role) bool {
	switch role {
	case template.RolePageFooter, template.RoleLastPageFooter, template.RoleColumnFooter:
		return true
	}
	return false
}
