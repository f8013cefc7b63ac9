package layout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wudi/reportkit/bands"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/expr"
	"github.com/wudi/reportkit/fonts"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/scripting"
	"github.com/wudi/reportkit/template"
)

type boxProps struct {
	Height     float64 `json:"height"`
	Lines      int     `json:"lines"`
	LineHeight float64 `json:"lineHeight"`
	Note       string  `json:"note"`
	Label      string  `json:"label"`
}

// boxPlugin is a fixed-size block; "lines" boxes split between lines.
type boxPlugin struct {
	typ    string
	labels *[]string
}

func (b boxPlugin) Type() string { return b.typ }

func (b boxPlugin) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, boxProps{LineHeight: 10})
}

func (b boxPlugin) Validate(props any) []plugin.FieldError {
	p, _ := plugin.As[boxProps](props)
	if p.Height < 0 {
		return []plugin.FieldError{{Field: "height", Message: "must not be negative"}}
	}
	return nil
}

func (b boxPlugin) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[boxProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	if p.Note != "" {
		ctx.AddFootnote(p.Note)
	}
	h := p.Height
	if p.Lines > 0 {
		h = float64(p.Lines) * p.LineHeight
	}
	return plugin.Size{Width: ctx.Width, Height: h}, nil
}

func (b boxPlugin) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[boxProps](props)
	if err != nil {
		return err
	}
	if p.Label != "" && b.labels != nil {
		*b.labels = append(*b.labels, p.Label)
	}
	r := ctx.PDFBox()
	ctx.Page.DrawRectangle(r.X, r.Y, r.W, r.H, builder.RectOptions{})
	return nil
}

type linesPlugin struct{ boxPlugin }

func (l linesPlugin) Split(ctx *plugin.MeasureContext, props any, available float64) (*plugin.SplitResult, error) {
	p, err := plugin.As[boxProps](props)
	if err != nil {
		return nil, err
	}
	n := int(available / p.LineHeight)
	if n < 1 || n >= p.Lines {
		return nil, nil
	}
	fit, rest := p, p
	fit.Lines = n
	rest.Lines = p.Lines - n
	rest.Note = ""
	return &plugin.SplitResult{Fit: fit, Overflow: rest}, nil
}

type failingPlugin struct{ boxPlugin }

var errBoom = errors.New("boom")

func (failingPlugin) Measure(*plugin.MeasureContext, any) (plugin.Size, error) {
	return plugin.Size{}, errBoom
}

// lateNotePlugin registers its footnote while rendering rather than
// while measuring.
type lateNotePlugin struct{ boxPlugin }

func (lateNotePlugin) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[boxProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	return plugin.Size{Width: ctx.Width, Height: p.Height}, nil
}

func (l lateNotePlugin) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[boxProps](props)
	if err != nil {
		return err
	}
	ctx.AddFootnote(p.Note)
	return l.boxPlugin.Render(ctx, props)
}

func page() template.PageSetup {
	return template.PageSetup{Width: 200, Height: 300, Margins: &template.Margins{Top: 10, Right: 10, Bottom: 10, Left: 10}}
}

func box(id string, height float64) template.Element {
	return template.Element{ID: id, Type: "box", Properties: map[string]any{"height": height}}
}

func rows(n int) map[string]any {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"name": string(rune('a' + i))}
	}
	return map[string]any{"rows": items}
}

type harness struct {
	labels []string
}

func (h *harness) run(t *testing.T, tpl *template.Template, data any, opts ...Option) (*Result, error) {
	t.Helper()
	ctx := context.Background()
	doc := builder.NewDocument()
	specs, err := fonts.CollectSpecs(tpl)
	if err != nil {
		t.Fatalf("collect specs: %v", err)
	}
	fm, err := fonts.Embed(ctx, doc, specs, tpl.Fonts, nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	reg := plugin.NewRegistry(
		boxPlugin{typ: "box", labels: &h.labels},
		linesPlugin{boxPlugin{typ: "lines"}},
		failingPlugin{boxPlugin{typ: "failing"}},
		lateNotePlugin{boxPlugin{typ: "late"}},
	)
	adapter := expr.NewAdapter(scripting.NewEvaluator())
	e := NewEngine(doc, tpl, reg, adapter, fm, opts...)
	for i := range tpl.Sections {
		ex, err := bands.Expand(ctx, &tpl.Sections[i], i, data, adapter, e.totalPages)
		if err != nil {
			return nil, err
		}
		if err := e.LayoutSection(ctx, i, ex); err != nil {
			return nil, err
		}
	}
	return e.Result(), nil
}

func trace(p PageResult) string {
	var parts []string
	for _, b := range p.Bands {
		parts = append(parts, fmt.Sprintf("%s@%g", b.Role, b.Y))
	}
	return strings.Join(parts, " ")
}

func TestComputeColumnLayout(t *testing.T) {
	cases := []struct {
		name    string
		width   float64
		columns int
		gap     float64
		ratios  []float64
		widths  []float64
		offsets []float64
	}{
		{"equal", 320, 3, 10, nil, []float64{100, 100, 100}, []float64{0, 110, 220}},
		{"ratios", 300, 2, 0, []float64{1, 2}, []float64{100, 200}, []float64{0, 100}},
		{"single", 180, 0, 5, nil, []float64{180}, []float64{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputeColumnLayout(tc.width, tc.columns, tc.gap, tc.ratios)
			if err != nil {
				t.Fatalf("compute: %v", err)
			}
			if fmt.Sprint(got.Widths) != fmt.Sprint(tc.widths) || fmt.Sprint(got.Offsets) != fmt.Sprint(tc.offsets) {
				t.Fatalf("got widths %v offsets %v, want %v %v", got.Widths, got.Offsets, tc.widths, tc.offsets)
			}
		})
	}
	if _, err := ComputeColumnLayout(100, 2, 0, []float64{1, 0}); err == nil {
		t.Fatalf("expected error for zero ratio")
	}
	if _, err := ComputeColumnLayout(10, 3, 10, nil); err == nil {
		t.Fatalf("expected error when gaps leave no room")
	}
	if _, err := ComputeColumnLayout(200, 2, 0, []float64{1}); err == nil {
		t.Fatalf("expected error for a ratio count that differs from the columns")
	}
}

func TestMismatchedColumnRatiosAreConfigErrors(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Columns: 2, ColumnRatios: []float64{1, 2, 3}, Bands: []template.Band{
		{Role: template.RoleBody, Height: 10, Elements: []template.Element{box("cell", 10)}},
	}}}}
	var h harness
	_, err := h.run(t, tpl, nil)
	var ce *errs.ConfigError
	if !errors.As(err, &ce) || ce.Path != "sections[0].columns" || !errors.Is(err, errs.ErrInvalidTemplate) {
		t.Fatalf("err = %v", err)
	}
}

func TestPaginatesDetailBands(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RolePageHeader, Height: 20},
		{Role: template.RolePageFooter, Height: 20},
		{Role: template.RoleLastPageFooter, Height: 30},
		{Role: template.RoleDetail, DataSource: "rows", Height: 100, Elements: []template.Element{box("cell", 100)}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, rows(5))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	want := []string{
		"pageHeader@10 detail@30 detail@130 pageFooter@270",
		"pageHeader@10 detail@30 detail@130 pageFooter@270",
		"pageHeader@10 detail@30 lastPageFooter@260",
	}
	if res.PageCount() != len(want) {
		t.Fatalf("pages = %d, want %d", res.PageCount(), len(want))
	}
	for i, w := range want {
		if got := trace(res.Pages[i]); got != w {
			t.Fatalf("page %d = %q, want %q", i+1, got, w)
		}
	}
}

func TestStructuralBandsSeePageCounters(t *testing.T) {
	footer := box("n", 10)
	footer.Properties["label"] = "{{pageNumber}}/{{totalPages}}"
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RolePageFooter, Height: 10, Elements: []template.Element{footer}},
		{Role: template.RoleDetail, DataSource: "rows", Height: 200, Elements: []template.Element{box("cell", 200)}},
	}}}}
	var h harness
	if _, err := h.run(t, tpl, rows(3), WithTotalPages(3)); err != nil {
		t.Fatalf("layout: %v", err)
	}
	if got := strings.Join(h.labels, ","); got != "1/3,2/3,3/3" {
		t.Fatalf("footer labels = %q", got)
	}
}

func TestSplitCarriesOverflow(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{ID: "text", Role: template.RoleBody, AutoHeight: true, Elements: []template.Element{
			{ID: "para", Type: "lines", AutoHeight: true, Properties: map[string]any{"lines": 40}},
		}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, nil)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if res.PageCount() != 2 {
		t.Fatalf("pages = %d, want 2", res.PageCount())
	}
	first, second := res.Pages[0].Bands[0], res.Pages[1].Bands[0]
	if !first.Split || first.Height != 280 || first.Y != 10 {
		t.Fatalf("first part = %+v", first)
	}
	if second.Split || second.Height != 120 || second.Y != 10 {
		t.Fatalf("carried part = %+v", second)
	}
}

func TestFixedBandDoesNotSplit(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{ID: "title", Role: template.RoleTitle, Height: 200, Elements: []template.Element{box("t", 200)}},
		{ID: "fixed", Role: template.RoleBody, Height: 150, Elements: []template.Element{
			{ID: "para", Type: "lines", Height: 150, Properties: map[string]any{"lines": 15}},
		}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, nil)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if got := trace(res.Pages[1]); got != "body@10" {
		t.Fatalf("page 2 = %q, want the whole band moved", got)
	}
}

func TestOversizedBandIsFatal(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{ID: "huge", Role: template.RoleBody, Height: 400, Elements: []template.Element{box("big", 400)}},
	}}}}
	var h harness
	_, err := h.run(t, tpl, nil)
	var fe *errs.ContentFitError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want ContentFitError", err)
	}
	if fe.Band != "huge" || fe.Element != "big" || fe.Required != 400 || fe.Available != 280 {
		t.Fatalf("fit error = %+v", fe)
	}
}

func TestLastPageFooterStacksColumnFootersAndFootnotes(t *testing.T) {
	furniture := func(lastH float64) []template.Band {
		return []template.Band{
			{Role: template.RolePageFooter, Height: 20, Elements: []template.Element{box("pf", 20)}},
			{Role: template.RoleLastPageFooter, Height: lastH, Elements: []template.Element{box("lpf", lastH)}},
			{Role: template.RoleColumnFooter, Height: 10, Elements: []template.Element{box("cf", 10)}},
		}
	}
	t.Run("column footer", func(t *testing.T) {
		bands := append(furniture(60), template.Band{Role: template.RoleBody, Height: 30, Elements: []template.Element{box("body", 30)}})
		tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: bands}}}
		var h harness
		res, err := h.run(t, tpl, nil)
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if got := trace(res.Pages[0]); got != "body@10 columnFooter@220 lastPageFooter@230" {
			t.Fatalf("last page = %q", got)
		}
	})
	t.Run("footnotes", func(t *testing.T) {
		body := box("body", 30)
		body.Properties["note"] = "see below"
		bands := append(furniture(80), template.Band{Role: template.RoleBody, Height: 30, Elements: []template.Element{body}})
		tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: bands}}}
		var h harness
		res, err := h.run(t, tpl, nil)
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		p := res.Pages[0]
		if res.PageCount() != 1 || len(p.Footnotes) != 1 {
			t.Fatalf("pages = %d, footnotes = %+v", res.PageCount(), p.Footnotes)
		}
		var colFooter, lastFooter LayoutBand
		for _, b := range p.Bands {
			switch b.Role {
			case template.RoleColumnFooter:
				colFooter = b
			case template.RoleLastPageFooter:
				lastFooter = b
			}
		}
		if lastFooter.Y != 210 {
			t.Fatalf("last page footer at %v, want 210", lastFooter.Y)
		}
		// The footnote block fills the gap between column footer and footer.
		gap := lastFooter.Y - (colFooter.Y + colFooter.Height)
		if gap <= 0 || colFooter.Y < 40 {
			t.Fatalf("column footer at %v leaves %v for footnotes above the footer", colFooter.Y, gap)
		}
	})
}

func TestFooterFootnotesAreIgnored(t *testing.T) {
	late := func(id string) template.Element {
		el := box(id, 20)
		el.Type = "late"
		el.Properties["note"] = "from " + id
		return el
	}
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RolePageFooter, Height: 20, Elements: []template.Element{late("footer")}},
		{Role: template.RoleColumnFooter, Height: 20, Elements: []template.Element{late("colfooter")}},
		{Role: template.RoleBody, Height: 20, Elements: []template.Element{late("body")}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, nil)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	notes := res.Pages[0].Footnotes
	if len(notes) != 1 || notes[0].Content != "from body" {
		t.Fatalf("footnotes = %+v", notes)
	}
}

func TestFootnotesNumberedPerPage(t *testing.T) {
	cell := box("cell", 100)
	cell.Properties["note"] = "n-{{item.name}}"
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RoleDetail, DataSource: "rows", Height: 100, Elements: []template.Element{cell}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, rows(3))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if res.PageCount() != 2 {
		t.Fatalf("pages = %d, want 2", res.PageCount())
	}
	got := func(p PageResult) string {
		var s []string
		for _, f := range p.Footnotes {
			s = append(s, fmt.Sprintf("%d:%s", f.Number, f.Content))
		}
		return strings.Join(s, " ")
	}
	if g := got(res.Pages[0]); g != "1:n-a 2:n-b" {
		t.Fatalf("page 1 footnotes = %q", g)
	}
	if g := got(res.Pages[1]); g != "1:n-c" {
		t.Fatalf("page 2 footnotes = %q", g)
	}
}

func TestColumns(t *testing.T) {
	detail := template.Band{Role: template.RoleDetail, DataSource: "rows", Height: 100, Elements: []template.Element{box("cell", 100)}}
	cols := func(res *Result, page int) string {
		var s []string
		for _, b := range res.Pages[page].Bands {
			s = append(s, fmt.Sprintf("%d:%g,%g", b.Column, b.X, b.Y))
		}
		return strings.Join(s, " ")
	}
	t.Run("fill", func(t *testing.T) {
		tpl := &template.Template{Page: page(), Sections: []template.Section{{Columns: 2, ColumnGap: 20, Bands: []template.Band{detail}}}}
		var h harness
		res, err := h.run(t, tpl, rows(5))
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if got := cols(res, 0); got != "0:10,10 0:10,110 1:110,10 1:110,110" {
			t.Fatalf("page 1 = %q", got)
		}
		if got := cols(res, 1); got != "0:10,10" {
			t.Fatalf("page 2 = %q", got)
		}
	})
	t.Run("roundRobin", func(t *testing.T) {
		tpl := &template.Template{Page: page(), Sections: []template.Section{{Columns: 2, ColumnGap: 20, ColumnFill: template.ColumnFillRoundRobin, Bands: []template.Band{detail}}}}
		var h harness
		res, err := h.run(t, tpl, rows(3))
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		if got := cols(res, 0); got != "0:10,10 1:110,10 0:10,110" {
			t.Fatalf("page 1 = %q", got)
		}
	})
}

func TestBookmarksAndAnchors(t *testing.T) {
	cell := box("cell", 100)
	cell.Anchor = "first-row"
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bookmark: "Report", Bands: []template.Band{
		{Role: template.RoleDetail, DataSource: "rows", Height: 100, Bookmark: "Row {{item.name}}", Elements: []template.Element{cell}},
	}}}}
	var h harness
	res, err := h.run(t, tpl, rows(3))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	var got []string
	for _, b := range res.Bookmarks {
		got = append(got, fmt.Sprintf("%d:%s@%d/%g", b.Level, b.Title, b.Page, b.Y))
	}
	want := "0:Report@0/290 1:Row a@0/290 1:Row b@0/190 1:Row c@1/290"
	if strings.Join(got, " ") != want {
		t.Fatalf("bookmarks = %q, want %q", strings.Join(got, " "), want)
	}
	if a := res.Anchors["first-row"]; a.Page != 0 || a.Y != 290 {
		t.Fatalf("anchor = %+v", a)
	}
}

func TestElementErrors(t *testing.T) {
	cases := []struct {
		name  string
		el    template.Element
		check func(error) bool
		path  string
	}{
		{
			name:  "unknown type",
			el:    template.Element{Type: "chart"},
			check: func(err error) bool { return errors.Is(err, errs.ErrUnknownElementType) },
			path:  "sections[0].bands[0].elements[0].type",
		},
		{
			name:  "invalid props",
			el:    box("neg", -5),
			check: func(err error) bool { return errors.Is(err, errs.ErrInvalidProps) },
			path:  "sections[0].bands[0].elements[0].properties.height",
		},
		{
			name:  "plugin failure",
			el:    template.Element{Type: "failing"},
			check: func(err error) bool { return errors.Is(err, errBoom) },
			path:  "sections[0].bands[0].elements[0]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
				{Role: template.RoleBody, Height: 20, Elements: []template.Element{tc.el}},
			}}}}
			var h harness
			_, err := h.run(t, tpl, nil)
			if err == nil || !tc.check(err) {
				t.Fatalf("err = %v", err)
			}
			var ce *errs.ConfigError
			var ee *errs.ElementError
			switch {
			case errors.As(err, &ce):
				if ce.Path != tc.path {
					t.Fatalf("path = %q, want %q", ce.Path, tc.path)
				}
			case errors.As(err, &ee):
				if ee.Path != tc.path || ee.Op != "measure" {
					t.Fatalf("element error = %+v", ee)
				}
			default:
				t.Fatalf("untyped error %v", err)
			}
		})
	}
}

func TestInvalidGradientIsSingleConfigError(t *testing.T) {
	el := box("shaded", 10)
	el.StyleOverrides = &template.Style{Background: &template.Background{Gradient: &template.Gradient{
		Stops: []template.GradientStop{{Offset: 0, Color: "red"}},
	}}}
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RoleBody, Height: 20, Elements: []template.Element{el}},
	}}}}
	var h harness
	_, err := h.run(t, tpl, nil)
	var ce *errs.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, errs.ErrInvalidGradient) {
		t.Fatalf("err = %v", err)
	}
	if ce.Path != "sections[0].bands[0].elements[0].style.background.gradient" {
		t.Fatalf("path = %q", ce.Path)
	}
	var inner *errs.ConfigError
	if errors.As(ce.Err, &inner) {
		t.Fatalf("gradient error wrapped twice: %v", err)
	}
}

func TestCancelledContextStopsLayout(t *testing.T) {
	tpl := &template.Template{Page: page(), Sections: []template.Section{{Bands: []template.Band{
		{Role: template.RoleBody, Height: 20},
	}}}}
	doc := builder.NewDocument()
	fm, err := fonts.Embed(context.Background(), doc, nil, nil, nil)
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	adapter := expr.NewAdapter(scripting.NewEvaluator())
	e := NewEngine(doc, tpl, plugin.NewRegistry(), adapter, fm)
	ex, err := bands.Expand(context.Background(), &tpl.Sections[0], 0, nil, adapter, 0)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.LayoutSection(ctx, 0, ex); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
