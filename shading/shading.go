// Package shading paints linear and radial gradients into a page as clipped
// PDF shadings.
package shading

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/contentstream"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/ir/raw"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

const (
	Linear = "linear"
	Radial = "radial"
)

type stop struct {
	offset float64
	color  builder.Color
}

// Validate checks a gradient without drawing it. Every error wraps
// errs.ErrInvalidGradient.
func Validate(g *template.Gradient) error {
	_, err := stops(g)
	return err
}

func stops(g *template.Gradient) ([]stop, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: missing gradient", errs.ErrInvalidGradient)
	}
	switch strings.ToLower(g.Type) {
	case Linear, Radial, "":
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errs.ErrInvalidGradient, g.Type)
	}
	if len(g.Stops) < 2 {
		return nil, fmt.Errorf("%w: need at least two stops, have %d", errs.ErrInvalidGradient, len(g.Stops))
	}
	out := make([]stop, len(g.Stops))
	for i, s := range g.Stops {
		if s.Offset < 0 || s.Offset > 1 || math.IsNaN(s.Offset) {
			return nil, fmt.Errorf("%w: stops[%d].offset %v outside [0,1]", errs.ErrInvalidGradient, i, s.Offset)
		}
		c, err := style.ParseColor(s.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: stops[%d].color: %v", errs.ErrInvalidGradient, i, err)
		}
		out[i] = stop{offset: s.Offset, color: c}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].offset < out[j].offset })
	return out, nil
}

// Paint fills rect (PDF space, lower-left origin) with g. The shading is
// clipped to rect and painted at opacity when one below 1 is given. The
// page graphics state is restored afterwards.
func Paint(page *builder.Page, doc *builder.Document, rect coords.Rect, g *template.Gradient, opacity *float64) error {
	ss, err := stops(g)
	if err != nil {
		return err
	}
	if rect.W <= 0 || rect.H <= 0 {
		return nil
	}
	sh := shadingDict(rect, g, ss)
	name := doc.NextResourceName("Sh")
	page.AddResource("Shading", name, raw.Ref(doc.AddObject(sh)))

	page.SaveState()
	page.ClipRect(rect.X, rect.Y, rect.W, rect.H)
	if opacity != nil {
		page.SetOpacity(*opacity)
	}
	page.AppendOps(contentstream.NameOp("sh", name))
	page.RestoreState()
	return nil
}

// shadingDict builds the shading dictionary for sorted stops. The axis (or the
// radius range) is scaled so t=0 falls on the first stop and t=1 on the
// last; both ends extend.
func shadingDict(rect coords.Rect, g *template.Gradient, ss []stop) *raw.DictObj {
	first, last := ss[0].offset, ss[len(ss)-1].offset
	if last-first < 1e-9 {
		first, last = 0, 1
	}
	d := raw.DictOf(
		"ColorSpace", raw.Name("DeviceRGB"),
		"Function", function(ss, first, last),
		"Extend", raw.NewArray(raw.Bool(true), raw.Bool(true)),
	)
	if strings.EqualFold(g.Type, Radial) {
		cx, cy, r := frac(g.CX, 0.5), frac(g.CY, 0.5), frac(g.Radius, 0.5)
		x := rect.X + cx*rect.W
		y := rect.Y + rect.H - cy*rect.H
		radius := r * math.Min(rect.W, rect.H)
		d.Set("ShadingType", raw.Int(3))
		d.Set("Coords", raw.Reals(x, y, first*radius, x, y, last*radius))
		return d
	}
	x0, y0, x1, y1 := Axis(rect, g.Angle)
	dx, dy := x1-x0, y1-y0
	d.Set("ShadingType", raw.Int(2))
	d.Set("Coords", raw.Reals(x0+dx*first, y0+dy*first, x0+dx*last, y0+dy*last))
	return d
}

// Axis returns the start and end of a linear gradient across rect. Angle is
// in degrees in template space: 0 runs left to right, 90 top to bottom. The
// axis passes through the centre and its length is the rectangle diagonal
// projected onto the angle, so the corners receive the end colors.
func Axis(rect coords.Rect, angle float64) (x0, y0, x1, y1 float64) {
	rad := angle * math.Pi / 180
	dx, dy := math.Cos(rad), -math.Sin(rad)
	half := (rect.W*math.Abs(dx) + rect.H*math.Abs(dy)) / 2
	cx, cy := rect.X+rect.W/2, rect.Y+rect.H/2
	return cx - dx*half, cy - dy*half, cx + dx*half, cy + dy*half
}

// function returns a Type 2 interpolation for two stops and a Type 3
// stitching function for more, with bounds at the interior stop offsets
// renormalised to [first, last].
func function(ss []stop, first, last float64) *raw.DictObj {
	if len(ss) == 2 {
		return interpolation(ss[0].color, ss[1].color)
	}
	span := last - first
	funcs := raw.NewArray()
	bounds := raw.NewArray()
	encode := raw.NewArray()
	for i := 0; i+1 < len(ss); i++ {
		funcs.Append(interpolation(ss[i].color, ss[i+1].color))
		encode.Append(raw.Int(0))
		encode.Append(raw.Int(1))
		if i > 0 {
			bounds.Append(raw.Real(clamp((ss[i].offset - first) / span)))
		}
	}
	return raw.DictOf(
		"FunctionType", raw.Int(3),
		"Domain", raw.NewArray(raw.Int(0), raw.Int(1)),
		"Functions", funcs,
		"Bounds", bounds,
		"Encode", encode,
	)
}

func interpolation(c0, c1 builder.Color) *raw.DictObj {
	return raw.DictOf(
		"FunctionType", raw.Int(2),
		"Domain", raw.NewArray(raw.Int(0), raw.Int(1)),
		"C0", raw.Reals(c0.R, c0.G, c0.B),
		"C1", raw.Reals(c1.R, c1.G, c1.B),
		"N", raw.Int(1),
	)
}

func frac(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v float64) float64 { return math.Max(0, math.Min(1, v)) }
