// Package plugin is the contract between the layout engine and element
// types. Every element type implements Plugin; the engine resolves props,
// validates them once per render, measures an element before rendering it
// and may measure it more than once on the same page attempt.
package plugin

import (
	"context"
	"fmt"
	"sort"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/resources"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// Size is a measured extent in points.
type Size struct {
	Width  float64
	Height float64
}

// FieldError is a validation failure scoped to one property.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Message) }

// Plugin renders one element type.
type Plugin interface {
	Type() string
	// ResolveProps merges raw (already expression-resolved) properties with
	// the type defaults.
	ResolveProps(raw map[string]any) (any, error)
	Validate(props any) []FieldError
	// Measure must not draw. Expensive generation work is memoized through
	// the context's Store so repeated calls are idempotent.
	Measure(ctx *MeasureContext, props any) (Size, error)
	Render(ctx *RenderContext, props any) error
}

// Splitter is implemented by plugins whose content can continue on the next
// page.
type Splitter interface {
	// Split divides props at available height. A nil result means the
	// content cannot be split there.
	Split(ctx *MeasureContext, props any, available float64) (*SplitResult, error)
}

// SplitResult holds the props placed on the current page and the props
// carried over to the next one.
type SplitResult struct {
	Fit      any
	Overflow any
}

// ChildHost measures and renders the children of a container element. The
// layout engine implements it.
type ChildHost interface {
	MeasureChild(parent *MeasureContext, index int, width, height float64) (Size, error)
	RenderChild(parent *RenderContext, index int, x, y, width, height float64) error
}

// MeasureContext is everything an element may consult while sizing itself.
type MeasureContext struct {
	Ctx       context.Context
	Doc       *builder.Document
	Fonts     *fonts.Map
	Resources resources.Loader
	Store     *Store
	Logger    observability.Logger

	Element *template.Element
	Path    string
	Style   style.Effective
	Scope   expr.Scope
	// Width and Height are the element box; Height is the nominal height
	// for auto-height elements.
	Width  float64
	Height float64

	// Children are the element's own children, for container types.
	Children []template.Element

	host     ChildHost
	footnote func(content string) int
}

// NewMeasureContext returns a context bound to a child host and a footnote
// registrar. Either may be nil.
func NewMeasureContext(host ChildHost, footnote func(string) int) *MeasureContext {
	return &MeasureContext{host: host, footnote: footnote}
}

// Bind sets the child host and footnote registrar of an existing context.
func (c *MeasureContext) Bind(host ChildHost, footnote func(string) int) {
	c.host = host
	c.footnote = footnote
}

// Face returns the font face selected by the effective style.
func (c *MeasureContext) Face() (*fonts.Face, error) {
	if c.Fonts == nil {
		return nil, fmt.Errorf("%s: no fonts embedded", c.Path)
	}
	return c.Fonts.Lookup(c.Style.FontFamily, c.Style.Bold(), c.Style.Italic)
}

// AddFootnote registers a footnote against the page being laid out and
// returns its number on that page, or 0 when footnotes are not collected.
// Registering the same content again from the same element returns the
// existing number.
func (c *MeasureContext) AddFootnote(content string) int {
	if c.footnote == nil || content == "" {
		return 0
	}
	return c.footnote(content)
}

// MeasureChild measures child i within the given box.
func (c *MeasureContext) MeasureChild(i int, width, height float64) (Size, error) {
	if c.host == nil || i < 0 || i >= len(c.Children) {
		return Size{}, fmt.Errorf("%s: no child %d", c.Path, i)
	}
	return c.host.MeasureChild(c, i, width, height)
}

// Context returns the request context, never nil.
func (c *MeasureContext) Context() context.Context {
	if c.Ctx == nil {
		return context.Background()
	}
	return c.Ctx
}

// Log returns the context logger, never nil.
func (c *MeasureContext) Log() observability.Logger {
	if c.Logger == nil {
		return observability.NopLogger{}
	}
	return c.Logger
}

// RenderContext adds the drawing surface to a MeasureContext.
type RenderContext struct {
	MeasureContext

	Page      *builder.Page
	Transform coords.Transform
	// Box is the absolute element box in template space.
	Box coords.Rect
	// Opacity is the element opacity when below 1. The engine has already
	// applied it to the graphics state.
	Opacity *float64
}

// PDFBox returns Box in PDF space.
func (c *RenderContext) PDFBox() coords.Rect { return c.Transform.Rect(c.Box) }

// RenderChild renders child i at (x, y) relative to Box.
func (c *RenderContext) RenderChild(i int, x, y, width, height float64) error {
	if c.host == nil || i < 0 || i >= len(c.Children) {
		return fmt.Errorf("%s: no child %d", c.Path, i)
	}
	return c.host.RenderChild(c, i, x, y, width, height)
}

// Registry maps element type tags to plugins. Registries are per session;
// there is no global registry.
type Registry struct {
	plugins map[string]Plugin
}

func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{plugins: make(map[string]Plugin)}
	for _, p := range plugins {
		r.plugins[p.Type()] = p
	}
	return r
}

// Register adds p. Registering a type twice is an error.
func (r *Registry) Register(p Plugin) error {
	if _, ok := r.plugins[p.Type()]; ok {
		return fmt.Errorf("plugin: type %q already registered", p.Type())
	}
	r.plugins[p.Type()] = p
	return nil
}

func (r *Registry) Lookup(typ string) (Plugin, bool) {
	p, ok := r.plugins[typ]
	return p, ok
}

// Resolve is Lookup that reports a missing type as a configuration error at
// path.
func (r *Registry) Resolve(typ, path string) (Plugin, error) {
	if p, ok := r.plugins[typ]; ok {
		return p, nil
	}
	return nil, errs.Config(path+".type", errs.ErrUnknownElementType, "%q", typ)
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	out := make([]string, 0, len(r.plugins))
	for t := range r.plugins {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
