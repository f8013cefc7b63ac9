package elements

import (
	"testing"

	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/plugin"
)

// Helvetica 10pt: "aa" is 11.12pt wide, a space 2.78pt, a line 12pt high.
const aaWidth = 11.12

func TestTextWraps(t *testing.T) {
	t.Run("bounded", func(t *testing.T) {
		ctx := newMeasure(t, 15, 0, nil, nil)
		size, err := Text{}.Measure(ctx, resolve(t, Text{}, map[string]any{"text": "aa aa aa"}))
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		if !near(size.Height, 36) || size.Width != 15 {
			t.Fatalf("size = %+v, want 15x36", size)
		}
	})
	t.Run("unbounded", func(t *testing.T) {
		ctx := newMeasure(t, 0, 0, nil, nil)
		size, err := Text{}.Measure(ctx, resolve(t, Text{}, map[string]any{"text": "aa aa"}))
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		if !near(size.Width, 2*aaWidth+2.78) || !near(size.Height, 12) {
			t.Fatalf("size = %+v", size)
		}
	})
	t.Run("newlines", func(t *testing.T) {
		ctx := newMeasure(t, 100, 0, nil, nil)
		lines, _, err := Text{}.layout(ctx, TextProps{Text: "a\nb\n\nc"})
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if len(lines) != 4 {
			t.Fatalf("got %d lines, want 4", len(lines))
		}
	})
	t.Run("long word", func(t *testing.T) {
		ctx := newMeasure(t, 15, 0, nil, nil)
		lines, _, err := Text{}.layout(ctx, TextProps{Text: "aaaaaa"})
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if len(lines) != 3 {
			t.Fatalf("got %d lines, want 3", len(lines))
		}
		for i, l := range lines {
			if l.width > 15 {
				t.Fatalf("line %d is %vpt wide", i, l.width)
			}
		}
	})
}

func TestTextResolveStringifies(t *testing.T) {
	props, err := Text{}.ResolveProps(map[string]any{"text": 42.0})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	p, _ := plugin.As[TextProps](props)
	if p.Text != expr.Stringify(42.0) {
		t.Fatalf("text = %q", p.Text)
	}
}

func TestTextAlign(t *testing.T) {
	cases := []struct {
		align string
		x     float64
	}{
		{"left", 10},
		{"center", 10 + (100-aaWidth)/2},
		{"right", 110 - aaWidth},
	}
	for _, tc := range cases {
		t.Run(tc.align, func(t *testing.T) {
			m := newMeasure(t, 100, 12, nil, nil)
			m.Style.Align = tc.align
			rc := newRender(m, coords.Rect{X: 10, Y: 20, W: 100, H: 12})
			if err := (Text{}).Render(rc, resolve(t, Text{}, map[string]any{"text": "aa"})); err != nil {
				t.Fatalf("render: %v", err)
			}
			td := operands(rc.Page, "Td")
			if len(td) != 1 || !near(td[0][0], tc.x) {
				t.Fatalf("Td = %v, want x %v", td, tc.x)
			}
			if td[0][1] >= pageHeight-20 || td[0][1] <= pageHeight-32 {
				t.Fatalf("baseline %v outside the box", td[0][1])
			}
		})
	}
}

func TestTextSplit(t *testing.T) {
	// Five one-word lines of 12pt each.
	cases := []struct {
		name             string
		orphans, widows  int
		available        float64
		want             int
	}{
		{"plain", 1, 1, 50, 4},
		{"widows", 1, 2, 50, 3},
		{"widows and orphans", 3, 3, 50, 0},
		{"orphans", 2, 1, 15, 0},
		{"everything fits", 1, 1, 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newMeasure(t, 15, 0, nil, nil)
			ctx.Style.Orphans, ctx.Style.Widows = tc.orphans, tc.widows
			props := resolve(t, Text{}, map[string]any{"text": "aa aa aa aa aa"})
			res, err := Text{}.Split(ctx, props, tc.available)
			if err != nil {
				t.Fatalf("split: %v", err)
			}
			if tc.want == 0 {
				if res != nil {
					t.Fatalf("expected no split, got %+v", res)
				}
				return
			}
			if res == nil {
				t.Fatalf("expected a split after %d lines", tc.want)
			}
			fit, _ := plugin.As[TextProps](res.Fit)
			rest, _ := plugin.As[TextProps](res.Overflow)
			if fit.to != tc.want || rest.from != tc.want {
				t.Fatalf("split at %d/%d, want %d", fit.to, rest.from, tc.want)
			}
			fs, _ := Text{}.Measure(ctx, res.Fit)
			rs, _ := Text{}.Measure(ctx, res.Overflow)
			if !near(fs.Height, float64(tc.want)*12) || !near(rs.Height, float64(5-tc.want)*12) {
				t.Fatalf("heights %v + %v", fs.Height, rs.Height)
			}
		})
	}
}

func TestTextFootnoteMarker(t *testing.T) {
	calls := 0
	ctx := newMeasure(t, 15, 0, nil, func(string) int { calls++; return 3 })
	props := resolve(t, Text{}, map[string]any{"text": "aa aa aa", "footnote": "see appendix"})
	res, err := Text{}.Split(ctx, props, 15)
	if err != nil || res == nil {
		t.Fatalf("split: %v %v", res, err)
	}
	rest, _ := plugin.As[TextProps](res.Overflow)
	if rest.mark != 3 {
		t.Fatalf("continuation mark = %d", rest.mark)
	}
	lines, mark, err := Text{}.layout(ctx, rest)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if calls != 1 {
		t.Fatalf("footnote registered %d times", calls)
	}
	last := lines[len(lines)-1].words
	marker := last[len(last)-1]
	if mark != 3 || marker.text != "3" || marker.rise <= 0 || marker.size >= 10 {
		t.Fatalf("marker = %+v", marker.span)
	}
}

func TestTextRuns(t *testing.T) {
	ctx := newMeasure(t, 200, 0, nil, nil)
	props := resolve(t, Text{}, map[string]any{"runs": []any{
		map[string]any{"text": "plain "},
		map[string]any{"text": "strong", "bold": true},
	}})
	lines, _, err := Text{}.layout(ctx, props.(TextProps))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	words := lines[0].words
	if len(words) != 2 || words[0].face.Bold || !words[1].face.Bold {
		t.Fatalf("words = %+v", words)
	}
	if !words[1].space {
		t.Fatal("the run boundary space must be kept")
	}
}
