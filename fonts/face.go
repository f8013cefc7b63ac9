package fonts

import (
	"github.com/wudi/reportkit/ir/raw"
)

type program interface {
	encode(text string) []byte
	advance(text string) float64 // 1/1000 em
	ascent() float64
	descent() float64
}

// Face is one embedded (family, weight, style) face. It satisfies
// builder.Font.
type Face struct {
	Family string
	Bold   bool
	Italic bool

	name string
	ref  raw.ObjectRef
	prog program
}

func (f *Face) ResourceName() string      { return f.name }
func (f *Face) Ref() raw.ObjectRef        { return f.ref }
func (f *Face) Encode(text string) []byte { return f.prog.encode(text) }

// Measure returns the width of text at size in points.
func (f *Face) Measure(text string, size float64) float64 {
	return f.prog.advance(text) * size / 1000
}

// Ascent is the distance from the baseline to the top of the face at size.
func (f *Face) Ascent(size float64) float64 { return f.prog.ascent() * size / 1000 }

// Descent is negative: the distance below the baseline at size.
func (f *Face) Descent(size float64) float64 { return f.prog.descent() * size / 1000 }

// Standard reports whether the face is a built-in font without a file.
func (f *Face) Standard() bool {
	_, ok := f.prog.(*standardProgram)
	return ok
}
