// Package layout places expanded band instances onto pages. It measures
// every band against the room left on the current page or column, renders
// what fits, splits what can continue, starts new pages for the rest and
// places the structural bands and footnotes of every page.
package layout

import (
	"context"
	"fmt"

	"github.com/wudi/reportkit/bands"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/outline"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/resources"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// DefaultMaxDepth bounds container nesting.
const DefaultMaxDepth = 32

// Engine lays out the sections of one document. It is used for a single
// render pass and is not safe for concurrent use.
type Engine struct {
	doc      *builder.Document
	tpl      *template.Template
	registry *plugin.Registry
	adapter  *expr.Adapter
	fonts    *fonts.Map
	styles   *style.Resolver
	loader   resources.Loader
	store    *plugin.Store
	logger   observability.Logger

	totalPages int
	maxDepth   int
	result     Result

	noteStyle style.Effective
	noteFace  *fonts.Face
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithTotalPages sets the page total exposed to expressions.
func WithTotalPages(n int) Option {
	return func(e *Engine) {
		e.totalPages = n
	}
}

// WithResources sets the loader plugins use for external bytes.
func WithResources(l resources.Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore shares plugin caches with other passes of the same render.
func WithStore(s *plugin.Store) Option {
	return func(e *Engine) {
		if s != nil {
			e.store = s
		}
	}
}

// WithMaxDepth sets the container nesting limit.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxDepth = n
		}
	}
}

// NewEngine creates an engine drawing into doc.
func NewEngine(doc *builder.Document, tpl *template.Template, registry *plugin.Registry, adapter *expr.Adapter, fontMap *fonts.Map, opts ...Option) *Engine {
	e := &Engine{
		doc:      doc,
		tpl:      tpl,
		registry: registry,
		adapter:  adapter,
		fonts:    fontMap,
		styles:   style.NewResolver(tpl),
		store:    plugin.NewStore(),
		logger:   observability.NopLogger{},
		maxDepth: DefaultMaxDepth,
		result:   Result{Anchors: map[string]Anchor{}},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loader == nil {
		e.loader = resources.NewCached(&resources.SourceLoader{})
	}
	return e
}

// Result returns the layout so far.
func (e *Engine) Result() *Result { return &e.result }

type state int

const (
	stateAccumulating state = iota
	stateSplitting
	statePageFull
)

func (s state) String() string {
	return [...]string{"accumulating", "splitting", "pageFull"}[s]
}

// sectionRun is the pagination state of one section.
type sectionRun struct {
	e       *Engine
	ctx     context.Context
	index   int
	section *template.Section
	ex      *bands.Expanded
	setup   template.PageSetup
	cols    ColumnLayout
	state   state
	page    *pageState
	log     observability.Logger
}

// LayoutSection lays out section number index, starting on a new page.
func (e *Engine) LayoutSection(ctx context.Context, index int, ex *bands.Expanded) error {
	if index < 0 || index >= len(e.tpl.Sections) {
		return fmt.Errorf("layout: no section %d", index)
	}
	section := &e.tpl.Sections[index]
	setup, err := e.pageSetup(section, index)
	if err != nil {
		return err
	}
	m := setup.Margins
	cols, err := ComputeColumnLayout(setup.Width-m.Left-m.Right, section.Columns, section.ColumnGap, section.ColumnRatios)
	if err != nil {
		return errs.Config(fmt.Sprintf("sections[%d].columns", index), errs.ErrInvalidTemplate, "%v", err)
	}
	if _, _, err := e.footnoteStyle(); err != nil {
		return err
	}
	r := &sectionRun{
		e:       e,
		ctx:     ctx,
		index:   index,
		section: section,
		ex:      ex,
		setup:   setup,
		cols:    cols,
		log:     e.logger.With(observability.Int("section", index)),
	}
	if err := r.openPage(); err != nil {
		return err
	}
	if section.Bookmark != "" {
		title, err := e.adapter.Resolve(ctx, section.Bookmark, r.page.scope)
		if err != nil {
			return errs.Config(fmt.Sprintf("sections[%d].bookmark", index), err, "")
		}
		e.result.Bookmarks = append(e.result.Bookmarks, outline.Entry{
			Title: title,
			Page:  r.page.index,
			Y:     r.page.tf.Y(m.Top),
			Level: 0,
		})
	}
	for _, inst := range ex.Content {
		if err := r.placeContent(inst); err != nil {
			return err
		}
	}
	return r.finish()
}

func (e *Engine) pageSetup(section *template.Section, index int) (template.PageSetup, error) {
	base, err := e.tpl.Page.Resolve(template.PageSetup{})
	if err != nil {
		return base, err
	}
	if section.Page == nil {
		return base, nil
	}
	p, err := section.Page.Resolve(base)
	if err != nil {
		return p, errs.Config(fmt.Sprintf("sections[%d].page", index), errs.ErrInvalidTemplate, "%v", err)
	}
	return p, nil
}

// work is a content instance waiting for placement. carry is set for the
// overflow part of a split element.
type work struct {
	inst  bands.Instance
	carry *carry
}

type carry struct {
	element int
	props   any
}

// placeContent runs one content instance through the state machine:
// place it when it fits, split it at the boundary when it can continue,
// otherwise move to a fresh column or page and retry it unchanged.
func (r *sectionRun) placeContent(inst bands.Instance) error {
	w := &work{inst: inst}
	for w != nil {
		r.state = stateAccumulating
		col := r.targetColumn()
		m, err := r.measureBand(w, r.cols.Widths[col])
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		avail := r.available(col, m.footnotes)
		if m.height <= avail+epsilon {
			if err := r.commit(m, col, false); err != nil {
				return err
			}
			w = nil
			continue
		}

		r.state = stateSplitting
		fit, rest, err := r.split(w, m, avail)
		if err != nil {
			return err
		}
		if fit != nil {
			if err := r.commit(fit, col, true); err != nil {
				return err
			}
			w = rest
			r.state = statePageFull
			if err := r.advance(); err != nil {
				return err
			}
			continue
		}
		if r.columnEmpty(col) {
			return r.fitError(m, avail)
		}
		r.state = statePageFull
		if err := r.advance(); err != nil {
			return err
		}
	}
	return nil
}

const epsilon = 1e-6

func (r *sectionRun) fitError(m *measuredBand, avail float64) error {
	fe := &errs.ContentFitError{Band: m.inst.ID(), Required: m.height, Available: avail}
	tallest := -1.0
	for _, el := range m.elems {
		if bottom := el.y + el.height; bottom > tallest {
			tallest = bottom
			fe.Element = elementID(el.prep)
		}
	}
	return fe
}

func elementID(p *prepared) string {
	if p.el.ID != "" {
		return p.el.ID
	}
	return p.path
}

// split divides the single overflowing splittable element of an
// auto-height band at the available height.
func (r *sectionRun) split(w *work, m *measuredBand, avail float64) (*measuredBand, *work, error) {
	if !m.inst.Band.AutoHeight && w.carry == nil {
		return nil, nil, nil
	}
	var target *measuredElement
	for _, el := range m.elems {
		if el.y+el.height <= avail+epsilon {
			continue
		}
		if target != nil {
			return nil, nil, nil
		}
		target = el
	}
	if target == nil || target.y >= avail {
		return nil, nil, nil
	}
	splitter, ok := target.prep.plugin.(plugin.Splitter)
	if !ok {
		return nil, nil, nil
	}
	res, err := splitter.Split(target.mctx, target.prep.props, avail-target.y)
	if err != nil {
		return nil, nil, &errs.ElementError{Path: target.prep.path, Type: target.prep.el.Type, Op: "split", Err: err}
	}
	if res == nil || res.Fit == nil {
		return nil, nil, nil
	}
	fitPrep := *target.prep
	fitPrep.props = res.Fit
	notes := &collector{page: r.page}
	mctx, size, err := r.e.measure(r.ctx, &fitPrep, target.width, target.prep.el.Height, notes.owner(w.inst.Key), 1)
	if err != nil {
		return nil, nil, err
	}
	fit := *m
	fit.elems = make([]*measuredElement, len(m.elems))
	copy(fit.elems, m.elems)
	for i, el := range fit.elems {
		if el == target {
			fit.elems[i] = &measuredElement{index: el.index, prep: &fitPrep, mctx: mctx, size: size, y: el.y, width: el.width, height: elementHeight(fitPrep.el, size), depth: 1}
		}
	}
	fit.height = 0
	for _, el := range fit.elems {
		fit.height = max(fit.height, el.y+el.height)
	}
	if fit.height > avail+epsilon || fit.height <= 0 {
		return nil, nil, nil
	}
	if res.Overflow == nil {
		return &fit, nil, nil
	}
	return &fit, &work{inst: w.inst, carry: &carry{element: target.index, props: res.Overflow}}, nil
}

// targetColumn picks the column the next content instance goes to. In
// round-robin mode each instance takes the next column and a new row
// starts below the tallest column.
func (r *sectionRun) targetColumn() int {
	p := r.page
	if r.section.ColumnFill != template.ColumnFillRoundRobin || r.cols.Count() == 1 {
		return p.col
	}
	c := p.placed % r.cols.Count()
	if c == 0 && p.placed > 0 {
		top := 0.0
		for _, y := range p.colY {
			top = max(top, y)
		}
		for i := range p.colY {
			p.colY[i] = top
			p.colStart[i] = top
		}
	}
	return c
}

// available is the room left in column col, counting the footnote block
// including footnotes the current attempt would add.
func (r *sectionRun) available(col int, extra []pendingFootnote) float64 {
	p := r.page
	notes := p.footnotes
	for _, f := range extra {
		if _, ok := p.footKeys[f.key]; !ok {
			notes = append(notes[:len(notes):len(notes)], f)
		}
	}
	return p.contentBottom() - r.footnoteHeight(notes) - p.colY[col]
}

func (r *sectionRun) columnEmpty(col int) bool {
	return r.page.colY[col] <= r.page.colStart[col]+epsilon
}

// advance moves to the next column, or to a new page after the last one.
func (r *sectionRun) advance() error {
	p := r.page
	if r.section.ColumnFill != template.ColumnFillRoundRobin && p.col+1 < r.cols.Count() {
		p.col++
		return nil
	}
	if err := r.closePage(false); err != nil {
		return err
	}
	return r.openPage()
}

// finish closes the last page of the section. When the last-page footer
// does not fit below the content, the section gets one more page for it.
func (r *sectionRun) finish() error {
	p := r.page
	lpf, lpfH, err := r.structural(r.ex.LastPageFooter, r.setup.Width-r.setup.Margins.Left-r.setup.Margins.Right)
	if err != nil {
		return err
	}
	if len(lpf) > 0 {
		bottom := 0.0
		for _, y := range p.colY {
			bottom = max(bottom, y)
		}
		room := r.setup.Height - r.setup.Margins.Bottom - bottom - p.colFooterH - r.footnoteHeight(p.footnotes)
		if lpfH > room+epsilon {
			r.log.Warn("last page footer needs its own page",
				observability.Float("required", lpfH),
				observability.Float("available", room))
			if err := r.closePage(false); err != nil {
				return err
			}
			if err := r.openPage(); err != nil {
				return err
			}
		}
	}
	return r.closePage(true)
}
