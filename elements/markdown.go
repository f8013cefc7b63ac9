package elements

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
	treeblood "github.com/wyatt915/goldmark-treeblood"
	"github.com/yuin/goldmark"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// MarkdownProps configures a markdown element. Math between $ or $$
// delimiters is typeset from MathML.
type MarkdownProps struct {
	Text string `json:"text"`

	from, to int
}

// Markdown renders CommonMark text: headings, paragraphs, emphasis, code,
// lists, block quotes and math. It splits between lines.
type Markdown struct{}

const (
	listIndent   = 15.0
	codeFamily   = "Courier"
	paraSpacing  = 0.5
	bulletMarker = "•"
)

var headingScale = map[atom.Atom]float64{
	atom.H1: 2.0,
	atom.H2: 1.5,
	atom.H3: 1.25,
	atom.H4: 1.1,
	atom.H5: 1.0,
	atom.H6: 1.0,
}

func (Markdown) Type() string { return "markdown" }

func (Markdown) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(stringifyKeys(raw, "text"), MarkdownProps{})
}

func (Markdown) Validate(props any) []plugin.FieldError {
	if _, err := plugin.As[MarkdownProps](props); err != nil {
		return []plugin.FieldError{{Field: "text", Message: err.Error()}}
	}
	return nil
}

// toHTML converts markdown through goldmark with the MathML extension.
// Conversions are memoized for the render.
func toHTML(ctx *plugin.MeasureContext, src string) (string, error) {
	cache := plugin.CacheFor[string](ctx.Store, "markdown.html")
	return cache.Get(plugin.Key(src), func() (string, error) {
		md := goldmark.New(goldmark.WithExtensions(treeblood.MathML()))
		var buf bytes.Buffer
		if err := md.Convert([]byte(src), &buf); err != nil {
			return "", fmt.Errorf("markdown: %w", err)
		}
		return buf.String(), nil
	})
}

func (m Markdown) layout(ctx *plugin.MeasureContext, p MarkdownProps) ([]line, error) {
	out, err := toHTML(ctx, p.Text)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("markdown: %w", err)
	}
	w := &mdWalker{ctx: ctx, base: ctx.Style, scale: 1}
	face, err := ctx.Face()
	if err != nil {
		return nil, err
	}
	w.b = newWordBuilder(paragraph{size: w.base.FontSize, face: face, lineHeight: w.base.LineHeight, align: w.base.Align})
	if err := w.walk(doc); err != nil {
		return nil, err
	}
	return flow(w.paragraphs(), wrapWidth(ctx)), nil
}

func (m Markdown) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[MarkdownProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	lines, err := m.layout(ctx, p)
	if err != nil {
		return plugin.Size{}, err
	}
	return textSize(ctx, lines, p.from, p.to), nil
}

func (m Markdown) Split(ctx *plugin.MeasureContext, props any, available float64) (*plugin.SplitResult, error) {
	p, err := plugin.As[MarkdownProps](props)
	if err != nil {
		return nil, err
	}
	lines, err := m.layout(ctx, p)
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
	rest.from = n
	return &plugin.SplitResult{Fit: fit, Overflow: rest}, nil
}

func (m Markdown) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[MarkdownProps](props)
	if err != nil {
		return err
	}
	lines, err := m.layout(&ctx.MeasureContext, p)
	if err != nil {
		return err
	}
	drawFlow(ctx, lines, p.from, p.to)
	return nil
}

type listState struct {
	ordered bool
	n       int
}

// mdWalker turns the HTML of a markdown document into paragraphs of
// styled words.
type mdWalker struct {
	ctx   *plugin.MeasureContext
	base  style.Effective
	b     *wordBuilder
	bold  int
	ital  int
	code  int
	pre   int
	scale float64
	// indent is the left indent of new paragraphs.
	indent float64
	lists  []listState
	// marker is waiting for the first paragraph of a list item.
	marker *word
}

func (w *mdWalker) span() (span, error) {
	family := w.base.FontFamily
	if w.code > 0 {
		family = codeFamily
	}
	size := w.base.FontSize * w.scale
	face, err := w.ctx.Fonts.Lookup(family, w.base.Bold() || w.bold > 0, w.base.Italic || w.ital > 0)
	if err != nil {
		return span{}, err
	}
	return span{face: face, size: size, color: w.base.Color}, nil
}

// block starts a paragraph. An empty paragraph left by the previous block
// is reused.
func (w *mdWalker) block(align string) error {
	s, err := w.span()
	if err != nil {
		return err
	}
	p := paragraph{
		size:       s.size,
		face:       s.face,
		lineHeight: w.base.LineHeight,
		align:      align,
		indent:     w.indent,
		before:     w.base.FontSize * paraSpacing,
		marker:     w.marker,
	}
	w.marker = nil
	last := &w.b.paras[len(w.b.paras)-1]
	if len(last.words) == 0 && (last.marker == nil || p.marker == nil) {
		if p.marker == nil {
			p.marker = last.marker
		}
		if len(w.b.paras) == 1 {
			p.before = 0
		}
		*last = p
	} else {
		w.b.paras = append(w.b.paras, p)
	}
	w.b.proto = p
	w.b.proto.marker = nil
	w.b.space = false
	return nil
}

func (w *mdWalker) walk(n *html.Node) error {
	switch n.Type {
	case html.TextNode:
		return w.text(n.Data)
	case html.ElementNode:
	default:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := w.walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	if n.Data == "math" {
		return w.math(n)
	}
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		w.bold++
		w.scale = headingScale[n.DataAtom]
		defer func() { w.bold--; w.scale = 1 }()
		if err := w.block(w.base.Align); err != nil {
			return err
		}
	case atom.P:
		if err := w.block(w.base.Align); err != nil {
			return err
		}
	case atom.Pre:
		w.pre++
		w.code++
		defer func() { w.pre--; w.code-- }()
		if err := w.block("left"); err != nil {
			return err
		}
	case atom.Ul, atom.Ol:
		w.lists = append(w.lists, listState{ordered: n.DataAtom == atom.Ol, n: startNumber(n)})
		w.indent += listIndent
		defer func() { w.lists = w.lists[:len(w.lists)-1]; w.indent -= listIndent }()
	case atom.Li:
		if err := w.listItem(); err != nil {
			return err
		}
	case atom.Blockquote:
		w.indent += listIndent
		w.ital++
		defer func() { w.indent -= listIndent; w.ital-- }()
	case atom.Strong, atom.B:
		w.bold++
		defer func() { w.bold-- }()
	case atom.Em, atom.I:
		w.ital++
		defer func() { w.ital-- }()
	case atom.Code:
		w.code++
		defer func() { w.code-- }()
	case atom.Br:
		w.b.paras = append(w.b.paras, w.b.proto)
		w.b.space = false
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := w.walk(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *mdWalker) listItem() error {
	s, err := w.span()
	if err != nil {
		return err
	}
	text := bulletMarker
	if len(w.lists) > 0 {
		l := &w.lists[len(w.lists)-1]
		if l.ordered {
			text = fmt.Sprintf("%d.", l.n)
			l.n++
		}
	}
	s.text = text
	mk := newWord(s, false)
	w.marker = &mk
	return w.block(w.base.Align)
}

func startNumber(n *html.Node) int {
	for _, a := range n.Attr {
		if a.Key == "start" {
			var v int
			if _, err := fmt.Sscanf(a.Val, "%d", &v); err == nil {
				return v
			}
		}
	}
	return 1
}

func (w *mdWalker) text(data string) error {
	s, err := w.span()
	if err != nil {
		return err
	}
	if w.pre == 0 {
		if strings.TrimSpace(data) == "" && len(w.b.paras[len(w.b.paras)-1].words) == 0 {
			return nil
		}
		w.b.add(strings.ReplaceAll(data, "\n", " "), s)
		return nil
	}
	for i, ln := range strings.Split(strings.TrimRight(data, "\n"), "\n") {
		if i > 0 {
			next := w.b.proto
			next.before = 0
			w.b.paras = append(w.b.paras, next)
		}
		if ln != "" {
			w.b.space = false
			w.b.emit(ln, s)
		}
	}
	return nil
}

func (w *mdWalker) math(n *html.Node) error {
	s, err := w.span()
	if err != nil {
		return err
	}
	s.math = layoutMath(n, s.face, s.size)
	if s.math == nil {
		return nil
	}
	display := false
	for _, a := range n.Attr {
		if a.Key == "display" && a.Val == "block" {
			display = true
		}
	}
	if !display {
		w.b.append(newWord(s, w.b.space && len(w.b.paras[len(w.b.paras)-1].words) > 0))
		w.b.space = false
		return nil
	}
	if err := w.block("center"); err != nil {
		return err
	}
	w.b.append(newWord(s, false))
	return w.block(w.base.Align)
}

// paragraphs drops the empty paragraphs left between blocks, keeping at
// least one so empty text still measures one line.
func (w *mdWalker) paragraphs() []paragraph {
	var out []paragraph
	for _, p := range w.b.paras {
		if len(p.words) > 0 || p.marker != nil {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return w.b.paras[:1]
	}
	out[0].before = 0
	return out
}
