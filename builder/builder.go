// Package builder is the output object model the layout engine draws into:
// a document that owns the PDF object graph and pages that accumulate
// content-stream operations. Coordinates are PDF user space.
package builder

import (
	"fmt"
	"sort"

	"github.com/wudi/reportkit/contentstream"
	"github.com/wudi/reportkit/ir/raw"
)

// Font is anything that can be selected with Tf and can encode text for Tj.
type Font interface {
	ResourceName() string
	Ref() raw.ObjectRef
	Encode(text string) []byte
}

// TextOptions configures text drawing.
type TextOptions struct {
	Font  Font
	Size  float64
	Color Color
}

// PathOptions configures path drawing.
type PathOptions struct {
	StrokeColor Color
	FillColor   Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	LineJoin    contentstream.LineJoin
	DashPattern []float64
	DashPhase   float64
	Fill        bool
	Stroke      bool
}

// RectOptions configures rectangle drawing (defaults to stroke if neither fill nor stroke is set).
type RectOptions = PathOptions

// LineOptions configures line drawing.
type LineOptions struct {
	StrokeColor Color
	LineWidth   float64
	LineCap     contentstream.LineCap
	DashPattern []float64
	DashPhase   float64
}

// Color is an RGB color with components in [0,1]. The zero value means
// "not set"; A is non-zero for any parsed color.
type Color struct {
	R, G, B float64
	A       float64
}

// Document owns every indirect object of one output file.
type Document struct {
	reg        *raw.Registry
	catalogRef raw.ObjectRef
	pagesRef   raw.ObjectRef
	catalog    *raw.DictObj
	info       map[string]string
	pages      []*Page
	counters   map[string]int
	extGStates map[string]raw.ObjectRef
	finalizers []func() error
	finalized  bool
}

// NewDocument creates an empty document. The catalog and page tree root are
// reserved first so they are always objects 1 and 2.
func NewDocument() *Document {
	d := &Document{
		reg:        raw.NewRegistry(),
		info:       make(map[string]string),
		counters:   make(map[string]int),
		extGStates: make(map[string]raw.ObjectRef),
	}
	d.catalogRef = d.reg.Reserve()
	d.pagesRef = d.reg.Reserve()
	d.catalog = raw.DictOf("Type", raw.Name("Catalog"), "Pages", raw.Ref(d.pagesRef))
	d.reg.Set(d.catalogRef, d.catalog)
	return d
}

// NewPage appends a page of the given size in points.
func (d *Document) NewPage(width, height float64) *Page {
	p := &Page{
		doc:       d,
		ref:       d.reg.Reserve(),
		Width:     width,
		Height:    height,
		resources: raw.Dict(),
	}
	d.pages = append(d.pages, p)
	return p
}

func (d *Document) Pages() []*Page            { return d.pages }
func (d *Document) Catalog() *raw.DictObj     { return d.catalog }
func (d *Document) CatalogRef() raw.ObjectRef { return d.catalogRef }
func (d *Document) PagesRef() raw.ObjectRef   { return d.pagesRef }

// Registry exposes the object graph for serialization.
func (d *Document) Registry() *raw.Registry { return d.reg }

// AddObject registers obj as a new indirect object.
func (d *Document) AddObject(obj raw.Object) raw.ObjectRef { return d.reg.Add(obj) }

// Reserve allocates a reference to be filled later with SetObject.
func (d *Document) Reserve() raw.ObjectRef { return d.reg.Reserve() }

func (d *Document) SetObject(ref raw.ObjectRef, obj raw.Object) { d.reg.Set(ref, obj) }

func (d *Document) Lookup(ref raw.ObjectRef) (raw.Object, bool) { return d.reg.Lookup(ref) }

// SetInfo records a document information entry such as Title or Author.
// Empty values remove the entry.
func (d *Document) SetInfo(key, value string) {
	if value == "" {
		delete(d.info, key)
		return
	}
	d.info[key] = value
}

// Info returns the information dictionary, or nil when no entry is set.
func (d *Document) Info() *raw.DictObj {
	if len(d.info) == 0 {
		return nil
	}
	keys := make([]string, 0, len(d.info))
	for k := range d.info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dict := raw.Dict()
	for _, k := range keys {
		dict.Set(k, raw.Str(d.info[k]))
	}
	return dict
}

// NextResourceName returns a document-unique resource name such as F3 or Sh1.
func (d *Document) NextResourceName(prefix string) string {
	d.counters[prefix]++
	return fmt.Sprintf("%s%d", prefix, d.counters[prefix])
}

// ExtGState returns the resource name and reference of a graphics state with
// the given constant fill and stroke alpha, creating it on first use.
func (d *Document) ExtGState(alpha float64) (string, raw.ObjectRef) {
	key := raw.FormatReal(alpha)
	if ref, ok := d.extGStates[key]; ok {
		return "GSa" + key, ref
	}
	ref := d.reg.Add(raw.DictOf(
		"Type", raw.Name("ExtGState"),
		"ca", raw.Real(alpha),
		"CA", raw.Real(alpha),
	))
	d.extGStates[key] = ref
	return "GSa" + key, ref
}

// OnFinalize registers fn to run once before the document is serialized.
// Fonts use it to write width tables for the glyphs actually drawn.
func (d *Document) OnFinalize(fn func() error) {
	d.finalizers = append(d.finalizers, fn)
}

// Finalize runs the registered hooks in registration order. Later calls are
// no-ops.
func (d *Document) Finalize() error {
	if d.finalized {
		return nil
	}
	d.finalized = true
	for _, fn := range d.finalizers {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

// Page accumulates the content and resources of one page.
type Page struct {
	doc       *Document
	ref       raw.ObjectRef
	Width     float64
	Height    float64
	resources *raw.DictObj
	ops       []contentstream.Operation
}

func (p *Page) Ref() raw.ObjectRef                       { return p.ref }
func (p *Page) Document() *Document                      { return p.doc }
func (p *Page) Resources() *raw.DictObj                  { return p.resources }
func (p *Page) Operations() []contentstream.Operation    { return p.ops }
func (p *Page) AppendOps(ops ...contentstream.Operation) { p.ops = append(p.ops, ops...) }

// AddResource registers obj under /category/name in the page resources.
func (p *Page) AddResource(category, name string, obj raw.Object) {
	p.resources.Dict(category).Set(name, obj)
}

// SaveState and RestoreState bracket q/Q.
func (p *Page) SaveState() *Page {
	p.ops = append(p.ops, contentstream.Operation{Operator: "q"})
	return p
}

func (p *Page) RestoreState() *Page {
	p.ops = append(p.ops, contentstream.Operation{Operator: "Q"})
	return p
}

// SetOpacity applies a constant alpha graphics state. Values at or above 1
// emit nothing.
func (p *Page) SetOpacity(alpha float64) *Page {
	if alpha >= 1 {
		return p
	}
	if alpha < 0 {
		alpha = 0
	}
	name, ref := p.doc.ExtGState(alpha)
	p.AddResource("ExtGState", name, raw.Ref(ref))
	p.ops = append(p.ops, contentstream.NameOp("gs", name))
	return p
}

// ClipRect intersects the clipping path with a rectangle.
func (p *Page) ClipRect(x, y, width, height float64) *Page {
	p.ops = append(p.ops,
		contentstream.Op("re", x, y, width, height),
		contentstream.Operation{Operator: "W"},
		contentstream.Operation{Operator: "n"},
	)
	return p
}

// DrawText draws one line of text with its baseline at (x, y).
func (p *Page) DrawText(text string, x, y float64, opts TextOptions) *Page {
	if opts.Font == nil || text == "" {
		return p
	}
	size := opts.Size
	if size <= 0 {
		size = 12
	}
	name := opts.Font.ResourceName()
	p.AddResource("Font", name, raw.Ref(opts.Font.Ref()))
	p.ops = append(p.ops, contentstream.Operation{Operator: "BT"})
	p.ops = append(p.ops, contentstream.Operation{
		Operator: "Tf",
		Operands: []raw.Object{raw.Name(name), raw.Real(size)},
	})
	p.ops = append(p.ops, contentstream.Op("Td", x, y))
	if !isZeroColor(opts.Color) {
		p.appendColorOp(opts.Color, false)
	}
	p.ops = append(p.ops, contentstream.Operation{
		Operator: "Tj",
		Operands: []raw.Object{textString(opts.Font.Encode(text))},
	})
	p.ops = append(p.ops, contentstream.Operation{Operator: "ET"})
	return p
}

// textString picks the hex form for binary (two-byte glyph) encodings.
func textString(b []byte) raw.StringObj {
	for _, c := range b {
		if c < 0x20 || c >= 0x7f {
			return raw.HexStr(b)
		}
	}
	return raw.StringObj{Bytes: b}
}

func (p *Page) DrawPath(path *contentstream.Path, opts PathOptions) *Page {
	if path == nil || path.Empty() {
		return p
	}
	if !opts.Stroke && !opts.Fill {
		opts.Stroke = true
	}
	p.ops = append(p.ops, contentstream.Operation{Operator: "q"})
	p.applyPathState(opts)
	p.ops = append(p.ops, path.Operations()...)
	p.ops = append(p.ops, contentstream.Operation{Operator: paintOperator(opts.Fill, opts.Stroke)})
	p.ops = append(p.ops, contentstream.Operation{Operator: "Q"})
	return p
}

func (p *Page) DrawRectangle(x, y, width, height float64, opts RectOptions) *Page {
	po := opts
	if !po.Stroke && !po.Fill {
		po.Stroke = true
	}
	p.ops = append(p.ops, contentstream.Operation{Operator: "q"})
	p.applyPathState(po)
	p.ops = append(p.ops, contentstream.Op("re", x, y, width, height))
	p.ops = append(p.ops, contentstream.Operation{Operator: paintOperator(po.Fill, po.Stroke)})
	p.ops = append(p.ops, contentstream.Operation{Operator: "Q"})
	return p
}

// DrawEllipse draws an ellipse centred on (cx, cy).
func (p *Page) DrawEllipse(cx, cy, rx, ry float64, opts PathOptions) *Page {
	return p.DrawPath(contentstream.Ellipse(cx, cy, rx, ry), opts)
}

func (p *Page) DrawLine(x1, y1, x2, y2 float64, opts LineOptions) *Page {
	p.ops = append(p.ops, contentstream.Operation{Operator: "q"})
	p.applyPathState(PathOptions{
		StrokeColor: opts.StrokeColor,
		LineWidth:   opts.LineWidth,
		LineCap:     opts.LineCap,
		DashPattern: opts.DashPattern,
		DashPhase:   opts.DashPhase,
		Stroke:      true,
	})
	p.ops = append(p.ops, contentstream.Op("m", x1, y1), contentstream.Op("l", x2, y2))
	p.ops = append(p.ops, contentstream.Operation{Operator: "S"})
	p.ops = append(p.ops, contentstream.Operation{Operator: "Q"})
	return p
}

// DrawImage paints an image XObject into the box with lower-left (x, y).
func (p *Page) DrawImage(img *Image, x, y, width, height float64) *Page {
	if img == nil {
		return p
	}
	w, h := width, height
	if w == 0 {
		w = float64(img.Width)
	}
	if h == 0 {
		h = float64(img.Height)
	}
	p.AddResource("XObject", img.Name, raw.Ref(img.Ref))
	p.ops = append(p.ops,
		contentstream.Operation{Operator: "q"},
		contentstream.Op("cm", w, 0, 0, h, x, y),
		contentstream.NameOp("Do", img.Name),
		contentstream.Operation{Operator: "Q"},
	)
	return p
}

func (p *Page) appendColorOp(c Color, stroking bool) {
	if isZeroColor(c) {
		return
	}
	op := "rg"
	if stroking {
		op = "RG"
	}
	p.ops = append(p.ops, contentstream.Op(op, c.R, c.G, c.B))
}

func (p *Page) applyPathState(opts PathOptions) {
	if opts.Fill {
		p.appendColorOp(opts.FillColor, false)
	}
	if !opts.Stroke {
		return
	}
	p.appendColorOp(opts.StrokeColor, true)
	if opts.LineWidth > 0 {
		p.ops = append(p.ops, contentstream.Op("w", opts.LineWidth))
	}
	if opts.LineCap != 0 {
		p.ops = append(p.ops, contentstream.Op("J", float64(opts.LineCap)))
	}
	if opts.LineJoin != 0 {
		p.ops = append(p.ops, contentstream.Op("j", float64(opts.LineJoin)))
	}
	if len(opts.DashPattern) > 0 {
		p.ops = append(p.ops, contentstream.Operation{
			Operator: "d",
			Operands: []raw.Object{raw.Reals(opts.DashPattern...), raw.Real(opts.DashPhase)},
		})
	}
}

func isZeroColor(c Color) bool {
	return c.R == 0 && c.G == 0 && c.B == 0 && c.A == 0
}

func paintOperator(fill, stroke bool) string {
	switch {
	case fill && stroke:
		return "B"
	case fill:
		return "f"
	default:
		return "S"
	}
}
