package fonts

import (
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/wudi/reportkit/ir/raw"
)

// Advance widths (1/1000 em) of the printable ASCII range 32..126 from the
// Adobe core font metrics.
var (
	helveticaWidths = [95]int{
		278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278, 584, 584, 584, 556,
		1015, 667, 667, 722, 722, 667, 611, 778, 722, 278, 500, 667, 556, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 278, 278, 278, 469, 556,
		333, 556, 556, 500, 556, 556, 278, 556, 556, 222, 222, 500, 222, 833, 556, 556,
		556, 556, 333, 500, 278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
	}
	helveticaBoldWidths = [95]int{
		278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333, 278, 278,
		556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333, 584, 584, 584, 611,
		975, 722, 722, 722, 722, 667, 611, 778, 722, 278, 556, 722, 611, 833, 722, 778,
		667, 778, 722, 667, 611, 722, 667, 944, 667, 667, 611, 333, 278, 333, 584, 556,
		333, 556, 611, 556, 611, 556, 333, 611, 611, 278, 278, 556, 278, 889, 611, 611,
		611, 611, 389, 556, 333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
	}
	timesWidths = [95]int{
		250, 333, 408, 500, 500, 833, 778, 180, 333, 333, 500, 564, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 278, 278, 564, 564, 564, 444,
		921, 722, 667, 667, 722, 611, 556, 722, 722, 333, 389, 722, 611, 889, 722, 722,
		556, 722, 667, 556, 611, 722, 722, 944, 722, 722, 611, 333, 278, 333, 469, 500,
		333, 444, 500, 444, 500, 444, 333, 500, 500, 278, 278, 500, 278, 778, 500, 500,
		500, 500, 333, 389, 278, 500, 500, 722, 500, 500, 444, 480, 200, 480, 541,
	}
	timesBoldWidths = [95]int{
		250, 333, 555, 500, 500, 1000, 833, 278, 333, 333, 500, 570, 250, 333, 250, 278,
		500, 500, 500, 500, 500, 500, 500, 500, 500, 500, 333, 333, 570, 570, 570, 500,
		930, 722, 667, 722, 722, 667, 611, 778, 778, 389, 500, 778, 667, 944, 722, 778,
		611, 778, 722, 556, 667, 722, 722, 1000, 722, 722, 667, 333, 278, 333, 581, 500,
		333, 500, 556, 444, 556, 444, 333, 500, 556, 278, 333, 556, 278, 833, 556, 500,
		556, 556, 444, 389, 333, 556, 500, 722, 500, 500, 444, 394, 220, 394, 520,
	}
)

type standardMetrics struct {
	baseFont     string
	widths       *[95]int // nil for fixed pitch
	fixedWidth   int
	defaultWidth int
	ascent       float64
	descent      float64
}

// IsStandard reports whether family is one of the built-in PDF families that
// need no font file.
func IsStandard(family string) bool {
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "helvetica", "times", "courier":
		return true
	}
	return false
}

func standardFor(family string, bold, italic bool) standardMetrics {
	style := ""
	switch strings.ToLower(strings.TrimSpace(family)) {
	case "times":
		m := standardMetrics{widths: &timesWidths, defaultWidth: 500, ascent: 683, descent: -217}
		switch {
		case bold && italic:
			style = "BoldItalic"
		case bold:
			style = "Bold"
		case italic:
			style = "Italic"
		default:
			style = "Roman"
		}
		if bold {
			m.widths = &timesBoldWidths
		}
		m.baseFont = "Times-" + style
		return m
	case "courier":
		m := standardMetrics{baseFont: "Courier", fixedWidth: 600, defaultWidth: 600, ascent: 629, descent: -157}
		if s := obliqueSuffix(bold, italic); s != "" {
			m.baseFont += "-" + s
		}
		return m
	}
	m := standardMetrics{baseFont: "Helvetica", widths: &helveticaWidths, defaultWidth: 556, ascent: 718, descent: -207}
	if bold {
		m.widths = &helveticaBoldWidths
	}
	if s := obliqueSuffix(bold, italic); s != "" {
		m.baseFont += "-" + s
	}
	return m
}

func obliqueSuffix(bold, italic bool) string {
	switch {
	case bold && italic:
		return "BoldOblique"
	case bold:
		return "Bold"
	case italic:
		return "Oblique"
	}
	return ""
}

// standardProgram encodes text as WinAnsi single bytes.
type standardProgram struct {
	m standardMetrics
}

func (p *standardProgram) encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		out = append(out, b)
	}
	return out
}

func (p *standardProgram) advance(text string) float64 {
	total := 0
	for _, b := range p.encode(text) {
		total += p.width(b)
	}
	return float64(total)
}

func (p *standardProgram) width(b byte) int {
	if p.m.widths == nil {
		return p.m.fixedWidth
	}
	if b >= 32 && b <= 126 {
		return p.m.widths[b-32]
	}
	if b == 0xA0 {
		return p.m.widths[0]
	}
	return p.m.defaultWidth
}

func (p *standardProgram) ascent() float64  { return p.m.ascent }
func (p *standardProgram) descent() float64 { return p.m.descent }

func (p *standardProgram) dict() *raw.DictObj {
	return raw.DictOf(
		"Type", raw.Name("Font"),
		"Subtype", raw.Name("Type1"),
		"BaseFont", raw.Name(p.m.baseFont),
		"Encoding", raw.Name("WinAnsiEncoding"),
	)
}
