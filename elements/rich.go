package elements

import (
	"math"
	"unicode/utf8"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/fonts"
)

// markerGap separates a list marker from its item.
const markerGap = 4.0

// span is a styled piece of text, or an inline formula when math is set.
type span struct {
	text  string
	face  *fonts.Face
	size  float64
	color builder.Color
	// rise lifts the baseline, for footnote markers.
	rise float64
	math *mathBox
}

func (s span) sameStyle(o span) bool {
	return s.math == nil && o.math == nil && s.face == o.face && s.size == o.size && s.color == o.color && s.rise == o.rise
}

func (s span) ascent() float64 {
	if s.math != nil {
		return s.math.ascent
	}
	return s.face.Ascent(s.size) + s.rise
}

func (s span) descent() float64 {
	if s.math != nil {
		return s.math.descent
	}
	return math.Abs(s.face.Descent(s.size))
}

// word is an unbreakable item of a paragraph.
type word struct {
	span
	width float64
	// space is set when a space separates the word from the previous one.
	space bool
}

func newWord(s span, space bool) word {
	w := word{span: s, space: space}
	if s.math != nil {
		w.width = s.math.width
	} else {
		w.width = s.face.Measure(s.text, s.size)
	}
	return w
}

// paragraph is a run of words wrapped as one block.
type paragraph struct {
	words []word
	// size and face give the height of an empty paragraph.
	size       float64
	face       *fonts.Face
	lineHeight float64
	align      string
	indent     float64
	// before is the gap above the paragraph; it is dropped at the top of
	// the element or of a continuation.
	before float64
	marker *word
}

type placed struct {
	word
	x    float64
	gaps int
}

// line is one laid-out line. Heights are in points.
type line struct {
	words   []placed
	width   float64
	ascent  float64
	descent float64
	height  float64
	gap     float64
	indent  float64
	align   string
	para    int
	last    bool
	marker  *word
}

// flow wraps paragraphs into lines no wider than maxWidth. Words wider than
// a line are broken between characters so nothing is lost.
func flow(paras []paragraph, maxWidth float64) []line {
	var out []line
	for pi, p := range paras {
		avail := maxWidth - p.indent
		cur := line{indent: p.indent, align: p.align, para: pi, marker: p.marker}
		if pi > 0 {
			cur.gap = p.before
		}
		first := true
		flush := func() {
			finishLine(&cur, p)
			out = append(out, cur)
			cur = line{indent: p.indent, align: p.align, para: pi}
			first = false
		}
		for _, w := range p.words {
			for _, piece := range breakWord(w, avail) {
				sp := 0.0
				if piece.space && len(cur.words) > 0 {
					sp = spaceWidth(piece.span)
				}
				if len(cur.words) > 0 && cur.width+sp+piece.width > avail+1e-9 {
					flush()
					sp = 0
				}
				gaps := 0
				if n := len(cur.words); n > 0 {
					gaps = cur.words[n-1].gaps
					if sp > 0 {
						gaps++
					}
				}
				cur.words = append(cur.words, placed{word: piece, x: cur.width + sp, gaps: gaps})
				cur.width += sp + piece.width
			}
		}
		if len(cur.words) > 0 || first {
			flush()
		}
		out[len(out)-1].last = true
	}
	return out
}

func spaceWidth(s span) float64 {
	if s.math != nil || s.face == nil {
		return 0
	}
	return s.face.Measure(" ", s.size)
}

// breakWord splits a text word that does not fit avail into pieces that
// do, at character boundaries.
func breakWord(w word, avail float64) []word {
	if w.width <= avail || w.math != nil || utf8.RuneCountInString(w.text) < 2 {
		return []word{w}
	}
	var out []word
	runes := []rune(w.text)
	start := 0
	for start < len(runes) {
		end := start + 1
		for end < len(runes) && w.face.Measure(string(runes[start:end+1]), w.size) <= avail {
			end++
		}
		s := w.span
		s.text = string(runes[start:end])
		out = append(out, newWord(s, start == 0 && w.space))
		start = end
	}
	return out
}

func finishLine(l *line, p paragraph) {
	size := p.size
	for _, w := range l.words {
		l.ascent = max(l.ascent, w.ascent())
		l.descent = max(l.descent, w.descent())
		if w.math == nil {
			size = max(size, w.size)
		}
	}
	if len(l.words) == 0 && p.face != nil {
		l.ascent = p.face.Ascent(p.size)
		l.descent = math.Abs(p.face.Descent(p.size))
	}
	l.height = max(size*p.lineHeight, l.ascent+l.descent)
}

// linesHeight is the height of lines[from:to]; the gap of the first line is
// not counted.
func linesHeight(lines []line, from, to int) float64 {
	h := 0.0
	for i := from; i < to && i < len(lines); i++ {
		if i > from {
			h += lines[i].gap
		}
		h += lines[i].height
	}
	return h
}

func linesWidth(lines []line) float64 {
	w := 0.0
	for _, l := range lines {
		w = max(w, l.indent+l.width)
	}
	return w
}

// breakLines picks where lines[from:] should continue on the next page when
// avail points are left. It keeps at least orphans lines of a paragraph at
// the bottom and widows lines at the top. ok is false when no line can
// stay.
func breakLines(lines []line, from int, avail float64, orphans, widows int) (int, bool) {
	n := from
	for n < len(lines) && linesHeight(lines, from, n+1) <= avail+1e-9 {
		n++
	}
	if n >= len(lines) || n == from {
		return 0, false
	}
	para := lines[n].para
	start, end := n, n
	for start > from && lines[start-1].para == para {
		start--
	}
	for end < len(lines) && lines[end].para == para {
		end++
	}
	if before := n - start; before > 0 && before < orphans {
		n = start
	} else if end-n < widows {
		n = end - widows
		if n-start < orphans {
			n = start
		}
	}
	if n <= from {
		return 0, false
	}
	return n, true
}

// drawLines paints lines[from:to] into box, a template-space rectangle,
// starting at its top edge.
func drawLines(page *builder.Page, tf coords.Transform, box coords.Rect, lines []line, from, to int) {
	top := box.Y
	for i := from; i < to && i < len(lines); i++ {
		l := lines[i]
		if i > from {
			top += l.gap
		}
		baseline := top + l.ascent + (l.height-l.ascent-l.descent)/2
		avail := box.W - l.indent
		x := box.X + l.indent
		extra := 0.0
		if l.align == "justify" {
			if gaps := lastGaps(l); gaps > 0 && !l.last {
				extra = (avail - l.width) / float64(gaps)
			}
		} else {
			x += alignX(l.align, avail, l.width)
		}
		if l.marker != nil {
			drawSpan(page, tf, l.marker.span, box.X+l.indent-l.marker.width-markerGap, baseline)
		}
		drawWords(page, tf, l.words, x, baseline, extra)
		top += l.height
	}
}

func lastGaps(l line) int {
	if len(l.words) == 0 {
		return 0
	}
	return l.words[len(l.words)-1].gaps
}

// drawWords merges neighbouring words of one style into a single text
// operation unless the line is justified.
func drawWords(page *builder.Page, tf coords.Transform, words []placed, x, baseline, extra float64) {
	for i := 0; i < len(words); {
		w := words[i]
		s := w.span
		j := i + 1
		if extra == 0 && w.math == nil {
			for j < len(words) && words[j].sameStyle(s) {
				if words[j].space {
					s.text += " "
				}
				s.text += words[j].text
				j++
			}
		}
		drawSpan(page, tf, s, x+w.x+extra*float64(w.gaps), baseline)
		i = j
	}
}

func drawSpan(page *builder.Page, tf coords.Transform, s span, x, baseline float64) {
	if s.math != nil {
		drawMath(page, s.math, x, tf.Y(baseline), s.color)
		return
	}
	page.DrawText(s.text, x, tf.Y(baseline)+s.rise, builder.TextOptions{Font: s.face, Size: s.size, Color: s.color})
}
