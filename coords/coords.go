// Package coords converts between template space (origin top-left, Y down)
// and PDF user space (origin bottom-left, Y up).
package coords

import (
	"errors"
	"math"
)

// Matrix is an affine transform in PDF order [a b c d e f].
type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2], m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2], m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4], m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

type Point struct{ X, Y float64 }

func (m Matrix) Apply(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}

func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{m[3] / det, -m[1] / det, -m[2] / det, m[0] / det, (m[2]*m[5] - m[3]*m[4]) / det, (m[1]*m[4] - m[0]*m[5]) / det}, nil
}

func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }
func Rotate(angle float64) Matrix {
	c, s := math.Cos(angle), math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Rect is an axis-aligned box. In template space (X, Y) is the top-left
// corner; in PDF space it is the bottom-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Transform flips template coordinates onto a page of the given height.
type Transform struct {
	PageHeight float64
}

// Y converts a template-space y coordinate.
func (t Transform) Y(y float64) float64 { return t.PageHeight - y }

// Point converts a template-space point.
func (t Transform) Point(x, y float64) Point { return Point{X: x, Y: t.PageHeight - y} }

// Rect converts a template-space box to its PDF-space equivalent.
func (t Transform) Rect(r Rect) Rect {
	return Rect{X: r.X, Y: t.PageHeight - r.Y - r.H, W: r.W, H: r.H}
}

// Matrix returns the cm matrix that maps template space onto PDF space.
func (t Transform) Matrix() Matrix { return Matrix{1, 0, 0, -1, 0, t.PageHeight} }
