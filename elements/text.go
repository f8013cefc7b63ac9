package elements

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// unbounded is the wrap width of an element without a width.
const unbounded = 1e9

// TextProps configures a text element. Runs, when given, replace Text with
// styled pieces: {"text": ..., "bold": true, "italic": true, "style": {...}}.
type TextProps struct {
	Text     string           `json:"text"`
	Runs     []map[string]any `json:"runs,omitempty"`
	Footnote string           `json:"footnote,omitempty"`

	// from and to select the lines of a split part; to == 0 runs to the end.
	from, to int
	// mark is the footnote number carried into a continuation.
	mark int
}

// Text draws wrapped, aligned text. It splits between lines and honours
// the widows and orphans of its style.
type Text struct{}

func (Text) Type() string { return "text" }

func (Text) ResolveProps(raw map[string]any) (any, error) {
	raw = stringifyKeys(raw, "text", "footnote")
	if runs, ok := raw["runs"].([]any); ok {
		out := make([]any, len(runs))
		for i, r := range runs {
			out[i] = r
			if m, ok := r.(map[string]any); ok {
				out[i] = stringifyKeys(m, "text")
			}
		}
		raw = withKey(raw, "runs", out)
	}
	return plugin.DecodeProps(raw, TextProps{})
}

func (Text) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[TextProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "text", Message: err.Error()}}
	}
	for i, run := range p.Runs {
		if _, err := fonts.RunStyle(run); err != nil {
			return []plugin.FieldError{{Field: fmt.Sprintf("runs[%d]", i), Message: err.Error()}}
		}
	}
	return nil
}

// layout wraps the text at the context width and returns the lines and the
// footnote number shown after the text.
func (t Text) layout(ctx *plugin.MeasureContext, p TextProps) ([]line, int, error) {
	face, err := ctx.Face()
	if err != nil {
		return nil, 0, err
	}
	st := ctx.Style
	base := span{face: face, size: st.FontSize, color: st.Color}
	b := newWordBuilder(paragraph{size: st.FontSize, face: face, lineHeight: st.LineHeight, align: st.Align})
	if len(p.Runs) == 0 {
		b.add(p.Text, base)
	}
	for _, run := range p.Runs {
		s, err := runSpan(ctx, run)
		if err != nil {
			return nil, 0, err
		}
		text, _ := run["text"].(string)
		b.add(text, s)
	}
	mark := p.mark
	if p.Footnote != "" && p.from == 0 {
		mark = ctx.AddFootnote(p.Footnote)
	}
	if mark > 0 {
		b.append(footnoteMarker(base, mark))
	}
	return flow(b.paras, wrapWidth(ctx)), mark, nil
}

func (t Text) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[TextProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	lines, _, err := t.layout(ctx, p)
	if err != nil {
		return plugin.Size{}, err
	}
	return textSize(ctx, lines, p.from, p.to), nil
}

func (t Text) Split(ctx *plugin.MeasureContext, props any, available float64) (*plugin.SplitResult, error) {
	p, err := plugin.As[TextProps](props)
	if err != nil {
		return nil, err
	}
	lines, mark, err := t.layout(ctx, p)
	if err != nil {
		return nil, err
	}
	if p.to > 0 {
		lines = lines[:min(p.to, len(lines))]
	}
	st := ctx.Style
	n, ok := breakLines(lines, p.from, available-st.Padding.Vertical(), st.Orphans, st.Widows)
	if !ok {
		return nil, nil
	}
	fit, rest := p, p
	fit.to = n
	rest.from, rest.to, rest.mark = n, p.to, mark
	return &plugin.SplitResult{Fit: fit, Overflow: rest}, nil
}

func (t Text) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[TextProps](props)
	if err != nil {
		return err
	}
	lines, _, err := t.layout(&ctx.MeasureContext, p)
	if err != nil {
		return err
	}
	drawFlow(ctx, lines, p.from, p.to)
	return nil
}

func wrapWidth(ctx *plugin.MeasureContext) float64 {
	if ctx.Width <= 0 {
		return unbounded
	}
	return max(ctx.Width-ctx.Style.Padding.Horizontal(), 1)
}

func lineRange(lines []line, from, to int) (int, int) {
	if to <= 0 || to > len(lines) {
		to = len(lines)
	}
	return min(from, to), to
}

func textSize(ctx *plugin.MeasureContext, lines []line, from, to int) plugin.Size {
	from, to = lineRange(lines, from, to)
	pad := ctx.Style.Padding
	w := ctx.Width
	if w <= 0 {
		w = linesWidth(lines[from:to]) + pad.Horizontal()
	}
	return plugin.Size{Width: w, Height: linesHeight(lines, from, to) + pad.Vertical()}
}

// drawFlow paints lines inside the padded box, vertically aligned.
func drawFlow(ctx *plugin.RenderContext, lines []line, from, to int) {
	from, to = lineRange(lines, from, to)
	box := inner(ctx.Box, ctx.Style.Padding)
	box.Y += alignY(ctx.Style.VerticalAlign, box.H, linesHeight(lines, from, to))
	drawLines(ctx.Page, ctx.Transform, box, lines, from, to)
}

func footnoteMarker(base span, n int) word {
	s := base
	s.text = strconv.Itoa(n)
	s.rise = base.size * 0.35
	s.size = base.size * 0.6
	return newWord(s, false)
}

// runSpan resolves the style of one rich-text run against the element
// style.
func runSpan(ctx *plugin.MeasureContext, run map[string]any) (span, error) {
	rs, err := fonts.RunStyle(run)
	if err != nil {
		return span{}, err
	}
	eff, err := applyRun(ctx.Style, rs)
	if err != nil {
		return span{}, err
	}
	face, err := ctx.Fonts.Lookup(eff.FontFamily, eff.Bold(), eff.Italic)
	if err != nil {
		return span{}, err
	}
	return span{face: face, size: eff.FontSize, color: eff.Color}, nil
}

func applyRun(eff style.Effective, rs template.Style) (style.Effective, error) {
	if rs.FontFamily != nil {
		eff.FontFamily = *rs.FontFamily
	}
	if rs.FontSize != nil && *rs.FontSize > 0 {
		eff.FontSize = *rs.FontSize
	}
	if rs.FontWeight != nil {
		eff.Weight = *rs.FontWeight
	}
	if rs.FontStyle != nil {
		eff.Italic = strings.EqualFold(*rs.FontStyle, "italic") || strings.EqualFold(*rs.FontStyle, "oblique")
	}
	if rs.Color != nil {
		c, err := style.ParseColor(*rs.Color)
		if err != nil {
			return eff, err
		}
		eff.Color = c
	}
	return eff, nil
}

// stringifyKeys turns non-string values of the given keys into strings, so
// a placeholder that evaluated to a number still decodes as text. raw is
// never modified; a copy is returned when a value changes.
func stringifyKeys(raw map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			if _, isString := v.(string); !isString {
				raw = withKey(raw, k, expr.Stringify(v))
			}
		}
	}
	return raw
}

// withKey returns a shallow copy of raw with k set to v.
func withKey(raw map[string]any, k string, v any) map[string]any {
	out := make(map[string]any, len(raw)+1)
	for key, val := range raw {
		out[key] = val
	}
	out[k] = v
	return out
}

// wordBuilder splits styled text into words and paragraphs. A newline
// starts a new paragraph with the prototype settings.
type wordBuilder struct {
	proto paragraph
	paras []paragraph
	space bool
}

func newWordBuilder(proto paragraph) *wordBuilder {
	return &wordBuilder{proto: proto, paras: []paragraph{proto}}
}

func (b *wordBuilder) add(text string, s span) {
	for i, part := range strings.Split(text, "\n") {
		if i > 0 {
			b.paras = append(b.paras, b.proto)
			b.space = false
		}
		start := -1
		for j, r := range part {
			if unicode.IsSpace(r) {
				if start >= 0 {
					b.emit(part[start:j], s)
					start = -1
				}
				b.space = true
			} else if start < 0 {
				start = j
			}
		}
		if start >= 0 {
			b.emit(part[start:], s)
		}
	}
}

func (b *wordBuilder) emit(text string, s span) {
	s.text = text
	cur := &b.paras[len(b.paras)-1]
	cur.words = append(cur.words, newWord(s, b.space && len(cur.words) > 0))
	b.space = false
}

// append adds a prepared word to the current paragraph.
func (b *wordBuilder) append(w word) {
	cur := &b.paras[len(b.paras)-1]
	cur.words = append(cur.words, w)
}
