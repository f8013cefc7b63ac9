package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/wudi/reportkit/bands"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/shading"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// prepared is an element with its props resolved against a scope.
type prepared struct {
	el     *template.Element
	path   string
	plugin plugin.Plugin
	props  any
	style  style.Effective
	scope  expr.Scope
}

// noteSink hands out the footnote registrar for the element at path.
type noteSink func(path string) func(content string) int

func (s noteSink) registrar(path string) func(string) int {
	if s == nil {
		return nil
	}
	return s(path)
}

// prepare evaluates the element condition and resolves its plugin, props
// and style. ok is false when the condition hides the element.
func (e *Engine) prepare(ctx context.Context, el *template.Element, path string, scope expr.Scope, depth int) (*prepared, bool, error) {
	if depth > e.maxDepth {
		return nil, false, errs.Config(path, errs.ErrNestingTooDeep, "more than %d levels", e.maxDepth)
	}
	visible, err := e.adapter.Evaluate(ctx, el.Condition, scope)
	if err != nil {
		return nil, false, errs.Config(path+".condition", err, "")
	}
	if !visible {
		return nil, false, nil
	}
	pl, err := e.registry.Resolve(el.Type, path)
	if err != nil {
		return nil, false, err
	}
	resolved, err := e.adapter.ResolveProps(ctx, el.Properties, scope)
	if err != nil {
		return nil, false, errs.Config(path+".properties", err, "")
	}
	rawProps, _ := resolved.(map[string]any)
	if rawProps == nil {
		rawProps = map[string]any{}
	}
	props, err := pl.ResolveProps(rawProps)
	if err != nil {
		return nil, false, errs.Config(path+".properties", errs.ErrInvalidProps, "%v", err)
	}
	if fes := pl.Validate(props); len(fes) > 0 {
		return nil, false, errs.Config(path+".properties."+fes[0].Field, errs.ErrInvalidProps, "%s", fes[0].Message)
	}
	st, err := e.styles.Resolve(el.Style, el.StyleOverrides, path)
	if err != nil {
		return nil, false, err
	}
	return &prepared{el: el, path: path, plugin: pl, props: props, style: st, scope: scope}, true, nil
}

func (e *Engine) measureContext(ctx context.Context, p *prepared, width, height float64) *plugin.MeasureContext {
	return &plugin.MeasureContext{
		Ctx:       ctx,
		Doc:       e.doc,
		Fonts:     e.fonts,
		Resources: e.loader,
		Store:     e.store,
		Logger:    e.logger,
		Element:   p.el,
		Path:      p.path,
		Style:     p.style,
		Scope:     p.scope,
		Width:     width,
		Height:    height,
		Children:  p.el.Children,
	}
}

// measure sizes a prepared element in a width x height box.
func (e *Engine) measure(ctx context.Context, p *prepared, width, height float64, sink noteSink, depth int) (*plugin.MeasureContext, plugin.Size, error) {
	mctx := e.measureContext(ctx, p, width, height)
	mctx.Bind(&host{e: e, depth: depth, sink: sink}, sink.registrar(p.path))
	size, err := p.plugin.Measure(mctx, p.props)
	if err != nil {
		return nil, plugin.Size{}, elementError(p, "measure", err)
	}
	return mctx, size, nil
}

// elementError wraps a plugin failure with the element path. Errors that
// already carry a path pass through.
func elementError(p *prepared, op string, err error) error {
	var ee *errs.ElementError
	var ce *errs.ConfigError
	var fe *errs.ContentFitError
	if errors.As(err, &ee) || errors.As(err, &ce) || errors.As(err, &fe) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &errs.ElementError{Path: p.path, Type: p.el.Type, Op: op, Err: err}
}

// elementHeight is the laid-out height: the measured height grows
// auto-height elements and elements without a nominal height.
func elementHeight(el *template.Element, size plugin.Size) float64 {
	if el.AutoHeight || el.Height <= 0 {
		return max(el.Height, size.Height)
	}
	return el.Height
}

func elementWidth(el *template.Element, size plugin.Size, avail float64) float64 {
	if el.Width > 0 {
		return el.Width
	}
	if size.Width > 0 {
		return size.Width
	}
	return max(avail-el.X, 0)
}

// renderElement paints the element decoration and hands the box to the
// plugin.
func (e *Engine) renderElement(ctx context.Context, page *builder.Page, tf coords.Transform, box coords.Rect, el *measuredElement, sink noteSink) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := el.prep
	st := p.style
	var opacity *float64
	if st.Opacity < 1 {
		o := st.Opacity
		opacity = &o
		page.SaveState()
		page.SetOpacity(o)
	}
	pdf := tf.Rect(box)
	if bg := st.Background; bg != nil {
		switch {
		case bg.Gradient != nil:
			if err := shading.Paint(page, e.doc, pdf, bg.Gradient, nil); err != nil {
				return errs.Config(p.path+".style.background.gradient", err, "")
			}
		case bg.Color != "":
			c, err := style.ParseColor(bg.Color)
			if err != nil {
				return errs.Config(p.path+".style.background", errs.ErrInvalidStyle, "%v", err)
			}
			page.DrawRectangle(pdf.X, pdf.Y, pdf.W, pdf.H, builder.RectOptions{FillColor: c, Fill: true})
		}
	}

	rctx := &plugin.RenderContext{
		MeasureContext: *el.mctx,
		Page:           page,
		Transform:      tf,
		Box:            box,
		Opacity:        opacity,
	}
	rctx.Ctx = ctx
	rctx.Width, rctx.Height = box.W, box.H
	rctx.Bind(&host{e: e, depth: el.depth, sink: sink}, sink.registrar(p.path))
	if err := p.plugin.Render(rctx, p.props); err != nil {
		return elementError(p, "render", err)
	}

	if st.BorderWidth > 0 {
		c := st.BorderColor
		if c.A == 0 {
			c = builder.Color{A: 1}
		}
		page.DrawRectangle(pdf.X, pdf.Y, pdf.W, pdf.H, builder.RectOptions{StrokeColor: c, LineWidth: st.BorderWidth, Stroke: true})
	}
	if opacity != nil {
		page.RestoreState()
	}
	return nil
}

// host lays out the children of container elements.
type host struct {
	e     *Engine
	depth int
	sink  noteSink
}

func (h *host) child(parent *plugin.MeasureContext, i int, width, height float64) (*measuredElement, bool, error) {
	el := &parent.Children[i]
	path := fmt.Sprintf("%s.children[%d]", parent.Path, i)
	p, ok, err := h.e.prepare(parent.Context(), el, path, parent.Scope, h.depth+1)
	if err != nil || !ok {
		return nil, false, err
	}
	if width <= 0 {
		width = el.Width
	}
	if height <= 0 {
		height = el.Height
	}
	mctx, size, err := h.e.measure(parent.Context(), p, width, height, h.sink, h.depth+1)
	if err != nil {
		return nil, false, err
	}
	return &measuredElement{index: i, prep: p, mctx: mctx, size: size, width: width, height: elementHeight(el, size), depth: h.depth + 1}, true, nil
}

func (h *host) MeasureChild(parent *plugin.MeasureContext, i int, width, height float64) (plugin.Size, error) {
	m, ok, err := h.child(parent, i, width, height)
	if err != nil || !ok {
		return plugin.Size{}, err
	}
	return plugin.Size{Width: m.size.Width, Height: m.height}, nil
}

func (h *host) RenderChild(parent *plugin.RenderContext, i int, x, y, width, height float64) error {
	m, ok, err := h.child(&parent.MeasureContext, i, width, height)
	if err != nil || !ok {
		return err
	}
	if height > 0 {
		m.height = height
	}
	if m.width <= 0 {
		m.width = m.size.Width
	}
	box := coords.Rect{X: parent.Box.X + x, Y: parent.Box.Y + y, W: m.width, H: m.height}
	return h.e.renderElement(parent.Context(), parent.Page, parent.Transform, box, m, h.sink)
}

// measuredBand is a band instance sized for one placement attempt.
type measuredBand struct {
	inst      bands.Instance
	scope     expr.Scope
	elems     []*measuredElement
	height    float64
	footnotes []pendingFootnote
	carry     *carry
}

type measuredElement struct {
	index  int
	prep   *prepared
	mctx   *plugin.MeasureContext
	size   plugin.Size
	y      float64
	width  float64
	height float64
	depth  int
}

// measureBand sizes every visible element of a band instance. It returns
// nil when a structural band's condition is false on this page; content
// conditions were settled during expansion. A carried instance holds only
// the continued element, placed at the top of the band.
func (r *sectionRun) measureBand(w *work, width float64) (*measuredBand, error) {
	inst := w.inst
	band := inst.Band
	scope := inst.Scope
	if band.Role.IsContent() {
		scope = scope.WithPage(r.page.index+1, r.e.totalPages)
	}
	if w.carry == nil && !band.Role.IsContent() {
		visible, err := r.e.adapter.Evaluate(r.ctx, band.Condition, scope)
		if err != nil {
			return nil, errs.Config(inst.Path+".condition", err, "")
		}
		if !visible {
			return nil, nil
		}
	}
	notes := &collector{page: r.page}
	sink := notes.owner(inst.Key)
	mb := &measuredBand{inst: inst, scope: scope, carry: w.carry}
	for i := range band.Elements {
		if w.carry != nil && i != w.carry.element {
			continue
		}
		el := &band.Elements[i]
		path := fmt.Sprintf("%s.elements[%d]", inst.Path, i)
		p, ok, err := r.e.prepare(r.ctx, el, path, scope, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if w.carry != nil {
			p.props = w.carry.props
		}
		ew := el.Width
		if ew <= 0 {
			ew = max(width-el.X, 0)
		}
		mctx, size, err := r.e.measure(r.ctx, p, ew, el.Height, sink, 1)
		if err != nil {
			return nil, err
		}
		me := &measuredElement{
			index:  i,
			prep:   p,
			mctx:   mctx,
			size:   size,
			y:      el.Y,
			width:  elementWidth(el, size, width),
			height: elementHeight(el, size),
			depth:  1,
		}
		if w.carry != nil {
			me.y = 0
		}
		mb.elems = append(mb.elems, me)
	}
	mb.footnotes = notes.notes
	mb.height = band.Height
	if band.AutoHeight || w.carry != nil {
		bottom := 0.0
		for _, el := range mb.elems {
			bottom = max(bottom, el.y+el.height)
		}
		if w.carry != nil {
			mb.height = bottom
		} else {
			mb.height = max(band.Height, bottom)
		}
	}
	return mb, nil
}
