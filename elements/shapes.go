package elements

import (
	"fmt"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/contentstream"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
)

// ShapeProps are the paint settings shared by the vector shapes. Without
// fill or stroke a shape is outlined in the text colour.
type ShapeProps struct {
	Fill      string    `json:"fill,omitempty"`
	Stroke    string    `json:"stroke,omitempty"`
	LineWidth float64   `json:"lineWidth,omitempty"`
	Dash      []float64 `json:"dash,omitempty"`
}

func (p ShapeProps) validate() []plugin.FieldError {
	var errs []plugin.FieldError
	for _, c := range []struct{ field, value string }{{"fill", p.Fill}, {"stroke", p.Stroke}} {
		if _, err := style.ParseColor(c.value); err != nil {
			errs = append(errs, plugin.FieldError{Field: c.field, Message: err.Error()})
		}
	}
	if p.LineWidth < 0 {
		errs = append(errs, plugin.FieldError{Field: "lineWidth", Message: "must not be negative"})
	}
	for _, d := range p.Dash {
		if d < 0 {
			errs = append(errs, plugin.FieldError{Field: "dash", Message: "must not be negative"})
			break
		}
	}
	return errs
}

func (p ShapeProps) options(st style.Effective) (builder.PathOptions, error) {
	fill, err := style.ParseColor(p.Fill)
	if err != nil {
		return builder.PathOptions{}, err
	}
	stroke, err := style.ParseColor(p.Stroke)
	if err != nil {
		return builder.PathOptions{}, err
	}
	opts := builder.PathOptions{
		FillColor:   fill,
		StrokeColor: stroke,
		Fill:        fill.A > 0,
		Stroke:      stroke.A > 0,
		LineWidth:   p.LineWidth,
		DashPattern: p.Dash,
	}
	if !opts.Fill && !opts.Stroke {
		opts.Stroke = true
		opts.StrokeColor = st.Color
	}
	if opts.Stroke && opts.LineWidth == 0 {
		opts.LineWidth = 1
	}
	return opts, nil
}

// boxSize is the measure of elements that fill their declared box.
func boxSize(ctx *plugin.MeasureContext) plugin.Size {
	return plugin.Size{Width: ctx.Width, Height: ctx.Height}
}

// RectangleProps configures a rectangle; Radius rounds its corners.
type RectangleProps struct {
	ShapeProps
	Radius float64 `json:"radius,omitempty"`
}

type Rectangle struct{}

func (Rectangle) Type() string { return "rectangle" }

func (Rectangle) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, RectangleProps{})
}

func (Rectangle) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[RectangleProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "fill", Message: err.Error()}}
	}
	errs := p.validate()
	if p.Radius < 0 {
		errs = append(errs, plugin.FieldError{Field: "radius", Message: "must not be negative"})
	}
	return errs
}

func (Rectangle) Measure(ctx *plugin.MeasureContext, _ any) (plugin.Size, error) {
	return boxSize(ctx), nil
}

func (Rectangle) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[RectangleProps](props)
	if err != nil {
		return err
	}
	opts, err := p.options(ctx.Style)
	if err != nil {
		return err
	}
	r := ctx.PDFBox()
	if p.Radius > 0 {
		ctx.Page.DrawPath(roundedRect(r.X, r.Y, r.W, r.H, p.Radius), opts)
		return nil
	}
	ctx.Page.DrawRectangle(r.X, r.Y, r.W, r.H, opts)
	return nil
}

// bezierArc is the control distance of a quarter circle of radius 1.
const bezierArc = 0.5522847498

// roundedRect outlines a rectangle with lower-left (x, y) whose corners are
// rounded by at most half the shorter side.
func roundedRect(x, y, w, h, r float64) *contentstream.Path {
	r = min(r, w/2, h/2)
	k := r * bezierArc
	p := &contentstream.Path{}
	p.MoveTo(x+r, y)
	p.LineTo(x+w-r, y)
	p.CurveTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	p.LineTo(x+w, y+h-r)
	p.CurveTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	p.LineTo(x+r, y+h)
	p.CurveTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	p.LineTo(x, y+r)
	p.CurveTo(x, y+r-k, x+r-k, y, x+r, y)
	p.Close()
	return p
}

type Ellipse struct{}

func (Ellipse) Type() string { return "ellipse" }

func (Ellipse) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, ShapeProps{})
}

func (Ellipse) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[ShapeProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "fill", Message: err.Error()}}
	}
	return p.validate()
}

func (Ellipse) Measure(ctx *plugin.MeasureContext, _ any) (plugin.Size, error) {
	return boxSize(ctx), nil
}

func (Ellipse) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[ShapeProps](props)
	if err != nil {
		return err
	}
	opts, err := p.options(ctx.Style)
	if err != nil {
		return err
	}
	r := ctx.PDFBox()
	ctx.Page.DrawEllipse(r.X+r.W/2, r.Y+r.H/2, r.W/2, r.H/2, opts)
	return nil
}

// LineProps configures a line across the element box. Direction is
// horizontal (through the middle, or the top edge of a flat box), vertical,
// diagonal (top-left to bottom-right) or antidiagonal.
type LineProps struct {
	Direction string    `json:"direction"`
	Color     string    `json:"color,omitempty"`
	Width     float64   `json:"width,omitempty"`
	Dash      []float64 `json:"dash,omitempty"`
}

type Line struct{}

func (Line) Type() string { return "line" }

func (Line) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, LineProps{Direction: "horizontal", Width: 1})
}

func (Line) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[LineProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "direction", Message: err.Error()}}
	}
	var errs []plugin.FieldError
	switch p.Direction {
	case "horizontal", "vertical", "diagonal", "antidiagonal":
	default:
		errs = append(errs, plugin.FieldError{Field: "direction", Message: fmt.Sprintf("unknown direction %q", p.Direction)})
	}
	if _, err := style.ParseColor(p.Color); err != nil {
		errs = append(errs, plugin.FieldError{Field: "color", Message: err.Error()})
	}
	if p.Width < 0 {
		errs = append(errs, plugin.FieldError{Field: "width", Message: "must not be negative"})
	}
	return errs
}

func (Line) Measure(ctx *plugin.MeasureContext, _ any) (plugin.Size, error) {
	return boxSize(ctx), nil
}

func (Line) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[LineProps](props)
	if err != nil {
		return err
	}
	color, err := style.ParseColor(p.Color)
	if err != nil {
		return err
	}
	if color.A == 0 {
		color = ctx.Style.Color
	}
	r := ctx.PDFBox()
	x1, y1, x2, y2 := r.X, r.Y+r.H/2, r.X+r.W, r.Y+r.H/2
	switch p.Direction {
	case "vertical":
		x1, y1, x2, y2 = r.X+r.W/2, r.Y+r.H, r.X+r.W/2, r.Y
	case "diagonal":
		x1, y1, x2, y2 = r.X, r.Y+r.H, r.X+r.W, r.Y
	case "antidiagonal":
		x1, y1, x2, y2 = r.X, r.Y, r.X+r.W, r.Y+r.H
	}
	ctx.Page.DrawLine(x1, y1, x2, y2, builder.LineOptions{StrokeColor: color, LineWidth: p.Width, DashPattern: p.Dash})
	return nil
}

// PathProps configures an SVG path. Coordinates are relative to the element
// box with y growing downwards; ViewBox [minX minY width height] scales them
// to fill the box.
type PathProps struct {
	ShapeProps
	D       string    `json:"d"`
	ViewBox []float64 `json:"viewBox,omitempty"`
}

type Path struct{}

func (Path) Type() string { return "path" }

func (Path) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, PathProps{})
}

func (Path) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[PathProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "d", Message: err.Error()}}
	}
	if errs := required("d", p.D); errs != nil {
		return errs
	}
	errs := p.validate()
	if _, err := contentstream.ParseSVGPath(p.D); err != nil {
		errs = append(errs, plugin.FieldError{Field: "d", Message: err.Error()})
	}
	if n := len(p.ViewBox); n != 0 && (n != 4 || p.ViewBox[2] <= 0 || p.ViewBox[3] <= 0) {
		errs = append(errs, plugin.FieldError{Field: "viewBox", Message: "must be [minX, minY, width, height] with a positive size"})
	}
	return errs
}

func (Path) Measure(ctx *plugin.MeasureContext, _ any) (plugin.Size, error) {
	return boxSize(ctx), nil
}

func (Path) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[PathProps](props)
	if err != nil {
		return err
	}
	opts, err := p.options(ctx.Style)
	if err != nil {
		return err
	}
	path, err := contentstream.ParseSVGPath(p.D)
	if err != nil {
		return err
	}
	ox, oy, sx, sy := 0.0, 0.0, 1.0, 1.0
	if len(p.ViewBox) == 4 {
		ox, oy = p.ViewBox[0], p.ViewBox[1]
		sx, sy = ctx.Box.W/p.ViewBox[2], ctx.Box.H/p.ViewBox[3]
	}
	box, tf := ctx.Box, ctx.Transform
	ctx.Page.DrawPath(path.Map(func(x, y float64) (float64, float64) {
		return box.X + (x-ox)*sx, tf.Y(box.Y + (y-oy)*sy)
	}), opts)
	return nil
}
