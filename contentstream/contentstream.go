// Package contentstream holds page content operations and the path model
// shared by the drawing primitives.
package contentstream

import (
	"bytes"

	"github.com/wudi/reportkit/ir/raw"
)

// Encode serializes operations into content-stream syntax, one operator per
// line.
func Encode(ops []Operation) []byte {
	var b bytes.Buffer
	for _, op := range ops {
		for _, operand := range op.Operands {
			raw.Append(&b, operand)
			b.WriteByte(' ')
		}
		b.WriteString(op.Operator)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// kappa is the control point distance for a quarter circle drawn with one
// cubic Bezier curve.
const kappa = 0.5522847498

func (p *Path) current() *Subpath {
	if len(p.Subpaths) == 0 {
		p.Subpaths = append(p.Subpaths, Subpath{})
	}
	return &p.Subpaths[len(p.Subpaths)-1]
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) {
	p.Subpaths = append(p.Subpaths, Subpath{Points: []PathPoint{{X: x, Y: y, Type: PathMoveTo}}})
}

// LineTo appends a straight segment.
func (p *Path) LineTo(x, y float64) {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{X: x, Y: y, Type: PathLineTo})
}

// CurveTo appends a cubic Bezier segment.
func (p *Path) CurveTo(c1x, c1y, c2x, c2y, x, y float64) {
	sp := p.current()
	sp.Points = append(sp.Points, PathPoint{
		X: x, Y: y, Type: PathCurveTo,
		Control1X: c1x, Control1Y: c1y,
		Control2X: c2x, Control2Y: c2y,
	})
}

// Close closes the current subpath.
func (p *Path) Close() {
	if len(p.Subpaths) == 0 {
		return
	}
	p.current().Closed = true
}

// Empty reports whether the path has no drawable points.
func (p *Path) Empty() bool {
	for _, sp := range p.Subpaths {
		if len(sp.Points) > 0 {
			return false
		}
	}
	return true
}

// Map returns a copy of the path with every coordinate passed through fn.
func (p *Path) Map(fn func(x, y float64) (float64, float64)) *Path {
	out := &Path{Subpaths: make([]Subpath, len(p.Subpaths))}
	for i, sp := range p.Subpaths {
		pts := make([]PathPoint, len(sp.Points))
		for j, pt := range sp.Points {
			pt.X, pt.Y = fn(pt.X, pt.Y)
			if pt.Type == PathCurveTo {
				pt.Control1X, pt.Control1Y = fn(pt.Control1X, pt.Control1Y)
				pt.Control2X, pt.Control2Y = fn(pt.Control2X, pt.Control2Y)
			}
			pts[j] = pt
		}
		out.Subpaths[i] = Subpath{Points: pts, Closed: sp.Closed}
	}
	return out
}

// Ellipse builds a closed ellipse from four Bezier arcs.
func Ellipse(cx, cy, rx, ry float64) *Path {
	ox, oy := rx*kappa, ry*kappa
	p := &Path{}
	p.MoveTo(cx+rx, cy)
	p.CurveTo(cx+rx, cy+oy, cx+ox, cy+ry, cx, cy+ry)
	p.CurveTo(cx-ox, cy+ry, cx-rx, cy+oy, cx-rx, cy)
	p.CurveTo(cx-rx, cy-oy, cx-ox, cy-ry, cx, cy-ry)
	p.CurveTo(cx+ox, cy-ry, cx+rx, cy-oy, cx+rx, cy)
	p.Close()
	return p
}

// Operations converts the path into construction operators (m, l, c, h).
// The caller appends the painting operator.
func (p *Path) Operations() []Operation {
	var ops []Operation
	for _, sp := range p.Subpaths {
		for _, pt := range sp.Points {
			switch pt.Type {
			case PathMoveTo:
				ops = append(ops, Op("m", pt.X, pt.Y))
			case PathLineTo:
				ops = append(ops, Op("l", pt.X, pt.Y))
			case PathCurveTo:
				ops = append(ops, Op("c", pt.Control1X, pt.Control1Y, pt.Control2X, pt.Control2Y, pt.X, pt.Y))
			}
		}
		if sp.Closed {
			ops = append(ops, Operation{Operator: "h"})
		}
	}
	return ops
}
