package layout

import (
	"fmt"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/style"
)

const (
	// footnoteSeparator is the room above the first footnote: a rule and a
	// gap.
	footnoteSeparator = 6.0
	footnoteRule      = 0.5
	footnoteStyleName = "footnote"
)

type pendingFootnote struct {
	key     string
	content string
	number  int
}

// collector gathers the footnotes of one placement attempt without touching
// the page, so a band that is retried on the next page does not leave
// numbers behind.
type collector struct {
	page  *pageState
	notes []pendingFootnote
}

func (c *collector) owner(instKey string) noteSink {
	return func(path string) func(string) int {
		return func(content string) int {
			key := instKey + "|" + path + "|" + content
			if n, ok := c.page.footKeys[key]; ok {
				return n
			}
			for _, f := range c.notes {
				if f.key == key {
					return f.number
				}
			}
			n := len(c.page.footnotes) + len(c.notes) + 1
			c.notes = append(c.notes, pendingFootnote{key: key, content: content, number: n})
			return n
		}
	}
}

// pageNotes registers footnotes directly on the open page. It is used at
// render time, after the attempt has been committed.
func (r *sectionRun) pageNotes(instKey string) noteSink {
	return func(path string) func(string) int {
		return func(content string) int {
			return r.registerFootnote(instKey+"|"+path+"|"+content, content)
		}
	}
}

func (r *sectionRun) registerFootnote(key, content string) int {
	p := r.page
	if n, ok := p.footKeys[key]; ok {
		return n
	}
	n := len(p.footnotes) + 1
	p.footnotes = append(p.footnotes, pendingFootnote{key: key, content: content, number: n})
	p.footKeys[key] = n
	return n
}

func (r *sectionRun) mergeFootnotes(m *measuredBand) {
	for _, f := range m.footnotes {
		r.registerFootnote(f.key, f.content)
	}
}

// footnoteStyle is the named "footnote" style when the template defines
// one, otherwise the default style at 80% size.
func (e *Engine) footnoteStyle() (style.Effective, *fonts.Face, error) {
	if e.noteFace != nil {
		return e.noteStyle, e.noteFace, nil
	}
	var st style.Effective
	var err error
	if _, ok := e.tpl.Styles[footnoteStyleName]; ok {
		st, err = e.styles.Resolve(footnoteStyleName, nil, "styles."+footnoteStyleName)
	} else {
		st, err = e.styles.Resolve("", nil, "defaultStyle")
		st.FontSize *= 0.8
	}
	if err != nil {
		return st, nil, err
	}
	face, err := e.fonts.Lookup(st.FontFamily, st.Bold(), st.Italic)
	if err != nil {
		return st, nil, err
	}
	e.noteStyle, e.noteFace = st, face
	return st, face, nil
}

func footnoteText(f pendingFootnote) string { return fmt.Sprintf("%d %s", f.number, f.content) }

// footnoteHeight is the height of a footnote block holding list, zero when
// it is empty.
func (r *sectionRun) footnoteHeight(list []pendingFootnote) float64 {
	if len(list) == 0 {
		return 0
	}
	st, face, err := r.e.footnoteStyle()
	if err != nil {
		return 0
	}
	width := r.setup.Width - r.setup.Margins.Left - r.setup.Margins.Right
	h := footnoteSeparator
	for _, f := range list {
		_, lh := fonts.WrapText(face, footnoteText(f), st.FontSize, st.LineHeight, width)
		h += lh
	}
	return h
}

// renderFootnotes draws the footnote block of the open page with its top
// edge at y.
func (r *sectionRun) renderFootnotes(y, x, width float64) error {
	p := r.page
	if len(p.footnotes) == 0 {
		return nil
	}
	st, face, err := r.e.footnoteStyle()
	if err != nil {
		return err
	}
	ruleY := p.tf.Y(y + footnoteSeparator/2)
	p.page.DrawLine(x, ruleY, x+width/3, ruleY, builder.LineOptions{StrokeColor: st.Color, LineWidth: footnoteRule})
	top := y + footnoteSeparator
	adv := st.LineAdvance()
	for _, f := range p.footnotes {
		lines, _ := fonts.WrapText(face, footnoteText(f), st.FontSize, st.LineHeight, width)
		for _, line := range lines {
			p.page.DrawText(line, x, p.tf.Y(top+face.Ascent(st.FontSize)), builder.TextOptions{Font: face, Size: st.FontSize, Color: st.Color})
			top += adv
		}
	}
	return nil
}
