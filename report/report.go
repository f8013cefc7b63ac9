// Package report renders a template against data into a finished PDF.
//
// Render validates the template, embeds the fonts it uses, expands and lays
// out every section, and serializes the document. Templates that reference
// totalPages are laid out twice: the first pass only counts pages.
package report

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/reportkit/bands"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/elements"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/layout"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/outline"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/resources"
	"github.com/wudi/reportkit/scripting"
	"github.com/wudi/reportkit/template"
	"github.com/wudi/reportkit/writer"
)

// Output is a rendered document.
type Output struct {
	Bytes     []byte
	PageCount int
	// Layout is the page-by-page placement of the final pass.
	Layout *layout.Result
}

type options struct {
	registry  *plugin.Registry
	logger    observability.Logger
	tracer    observability.Tracer
	evaluator scripting.Evaluator
	loader    resources.Loader
	info      template.DocumentInfo
	writer    writer.Config
	maxDepth  int
}

// Option configures Render.
type Option func(*options)

// WithRegistry replaces the built-in element plugins.
func WithRegistry(r *plugin.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithLogger sets the logger used by every stage.
func WithLogger(l observability.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTracer records a span per render stage.
func WithTracer(tr observability.Tracer) Option {
	return func(o *options) {
		if tr != nil {
			o.tracer = tr
		}
	}
}

// WithEvaluator replaces the expression engine.
func WithEvaluator(ev scripting.Evaluator) Option {
	return func(o *options) {
		if ev != nil {
			o.evaluator = ev
		}
	}
}

// WithFontLoader sets the loader for font and image sources. It is wrapped
// so each source is fetched at most once per render.
func WithFontLoader(l resources.Loader) Option {
	return func(o *options) {
		if l != nil {
			o.loader = l
		}
	}
}

// WithInfo overrides document information entries. Non-empty fields win
// over the template's info block.
func WithInfo(info template.DocumentInfo) Option {
	return func(o *options) {
		o.info = info
	}
}

// WithWriterConfig sets the PDF version and stream compression.
func WithWriterConfig(cfg writer.Config) Option {
	return func(o *options) {
		o.writer = cfg
	}
}

// WithMaxDepth bounds container nesting.
func WithMaxDepth(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDepth = n
		}
	}
}

// Render lays out t against data and returns the PDF. Any error aborts the
// render and no bytes are returned.
func Render(ctx context.Context, t *template.Template, data any, opts ...Option) (out *Output, err error) {
	if t == nil {
		return nil, errs.Config("", errs.ErrInvalidTemplate, "nil template")
	}
	o := options{
		logger:   observability.NopLogger{},
		tracer:   observability.NopTracer(),
		writer:   writer.DefaultConfig,
		maxDepth: layout.DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registry == nil {
		o.registry = elements.Default()
	}
	if o.evaluator == nil {
		o.evaluator = scripting.NewEvaluator()
	}
	if o.loader == nil {
		o.loader = &resources.SourceLoader{}
	}
	loader := resources.NewCached(o.loader)

	ctx, span := o.tracer.StartSpan(ctx, observability.SpanRender)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	if err := Validate(t, o.registry, o.maxDepth); err != nil {
		return nil, err
	}
	specs, err := fonts.CollectSpecs(t)
	if err != nil {
		return nil, err
	}

	r := &renderer{tpl: t, data: data, opts: o, specs: specs, loader: loader, adapter: expr.NewAdapter(o.evaluator)}
	total := 0
	if NeedsTotalPages(t) {
		first, err := r.pass(ctx, 0)
		if err != nil {
			return nil, err
		}
		total = first.result.PageCount()
		o.logger.Debug("counted pages", observability.Int("pages", total))
	}
	final, err := r.pass(ctx, total)
	if err != nil {
		return nil, err
	}
	out, err = r.finish(ctx, final)
	if err != nil {
		return nil, err
	}
	span.SetTag("pages", out.PageCount)
	o.logger.Info("rendered report",
		observability.Int("pages", out.PageCount),
		observability.Int("bytes", len(out.Bytes)),
		observability.Int("sections", len(t.Sections)))
	return out, nil
}

type renderer struct {
	tpl     *template.Template
	data    any
	opts    options
	specs   []fonts.Spec
	loader  resources.Loader
	adapter *expr.Adapter
}

type passResult struct {
	doc    *builder.Document
	result *layout.Result
}

// pass lays out the whole document into a fresh builder. total is the page
// count exposed to expressions, 0 when unknown.
func (r *renderer) pass(ctx context.Context, total int) (res *passResult, err error) {
	ctx, span := r.opts.tracer.StartSpan(ctx, observability.SpanPass)
	span.SetTag("totalPages", total)
	defer func() {
		if err != nil {
			span.SetError(err)
		}
		span.Finish()
	}()

	doc := builder.NewDocument()
	fctx, fspan := r.opts.tracer.StartSpan(ctx, observability.SpanFonts)
	fm, err := fonts.Embed(fctx, doc, r.specs, r.tpl.Fonts, r.loader)
	fspan.SetTag("faces", len(r.specs))
	fspan.Finish()
	if err != nil {
		return nil, err
	}
	e := layout.NewEngine(doc, r.tpl, r.opts.registry, r.adapter, fm,
		layout.WithLogger(r.opts.logger),
		layout.WithTotalPages(total),
		layout.WithResources(r.loader),
		layout.WithStore(plugin.NewStore()),
		layout.WithMaxDepth(r.opts.maxDepth),
	)
	for i := range r.tpl.Sections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.section(ctx, e, i, total); err != nil {
			return nil, err
		}
	}
	return &passResult{doc: doc, result: e.Result()}, nil
}

func (r *renderer) section(ctx context.Context, e *layout.Engine, i, total int) error {
	ctx, span := r.opts.tracer.StartSpan(ctx, observability.SpanSection)
	defer span.Finish()
	span.SetTag("section", i)
	ex, err := bands.Expand(ctx, &r.tpl.Sections[i], i, r.data, r.adapter, total)
	if err == nil {
		err = e.LayoutSection(ctx, i, ex)
	}
	if err != nil {
		span.SetError(err)
	}
	return err
}

func (r *renderer) finish(ctx context.Context, p *passResult) (*Output, error) {
	if err := outline.Build(p.doc, p.result.Bookmarks); err != nil {
		return nil, err
	}
	named := make(map[string]outline.Entry, len(p.result.Anchors))
	for name, a := range p.result.Anchors {
		named[name] = outline.Entry{Title: name, Page: a.Page, Y: a.Y}
	}
	if err := outline.Destinations(p.doc, named); err != nil {
		return nil, err
	}
	for _, kv := range infoEntries(r.tpl.Info, r.opts.info) {
		p.doc.SetInfo(kv[0], kv[1])
	}
	var buf bytes.Buffer
	wctx, span := r.opts.tracer.StartSpan(ctx, observability.SpanWrite)
	err := writer.Write(wctx, p.doc, &buf, r.opts.writer)
	span.SetTag("bytes", buf.Len())
	span.Finish()
	if err != nil {
		return nil, fmt.Errorf("report: write: %w", err)
	}
	return &Output{Bytes: buf.Bytes(), PageCount: p.result.PageCount(), Layout: p.result}, nil
}

func infoEntries(base, override template.DocumentInfo) [][2]string {
	pick := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	return [][2]string{
		{"Title", pick(base.Title, override.Title)},
		{"Author", pick(base.Author, override.Author)},
		{"Subject", pick(base.Subject, override.Subject)},
		{"Keywords", pick(base.Keywords, override.Keywords)},
		{"Creator", pick(base.Creator, override.Creator)},
	}
}

// NeedsTotalPages reports whether any expression in t mentions totalPages.
func NeedsTotalPages(t *template.Template) bool {
	found := false
	visit := func(s string) {
		if !found && strings.Contains(s, expr.KeyTotalPages) {
			found = true
		}
	}
	for _, s := range t.Sections {
		visit(s.Bookmark)
		for _, b := range s.Bands {
			visit(b.Condition)
			visit(b.Bookmark)
			visit(b.DataSource)
			visit(b.GroupBy)
			walkElements(b.Elements, func(el *template.Element) {
				visit(el.Condition)
				walkStrings(el.Properties, visit)
			})
		}
	}
	return found
}

func walkElements(list []template.Element, fn func(*template.Element)) {
	for i := range list {
		fn(&list[i])
		walkElements(list[i].Children, fn)
	}
}

func walkStrings(v any, fn func(string)) {
	switch v := v.(type) {
	case string:
		fn(v)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkStrings(v[k], fn)
		}
	case []any:
		for _, e := range v {
			walkStrings(e, fn)
		}
	}
}
