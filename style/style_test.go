package style

import (
	"errors"
	"testing"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/template"
)

func TestResolvePrecedence(t *testing.T) {
	tpl := &template.Template{
		DefaultStyle: template.Style{FontSize: template.Ptr(11.0), Color: template.Ptr("#333")},
		Styles: map[string]template.Style{
			"heading": {FontSize: template.Ptr(18.0), FontWeight: template.Ptr(template.WeightBold), Padding: 4.0},
		},
	}
	r := NewResolver(tpl)

	base, err := r.Resolve("", nil, "el")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if base.FontFamily != "Helvetica" || base.FontSize != 11 || base.LineHeight != 1.2 || base.Opacity != 1 {
		t.Fatalf("defaults not applied: %+v", base)
	}
	if base.Color.R != 0x33/255.0 {
		t.Fatalf("document color not applied: %+v", base.Color)
	}

	eff, err := r.Resolve("heading", &template.Style{FontSize: template.Ptr(20.0), Padding: []any{1.0, 2.0}}, "el")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if eff.FontSize != 20 || !eff.Bold() {
		t.Fatalf("override precedence broken: %+v", eff)
	}
	if eff.Padding != (Padding{1, 2, 1, 2}) {
		t.Fatalf("padding must be replaced, not merged: %+v", eff.Padding)
	}
}

func TestResolveUnknownStyle(t *testing.T) {
	_, err := NewResolver(&template.Template{}).Resolve("missing", nil, "sections[0].bands[1].elements[2]")
	var ce *errs.ConfigError
	if !errors.As(err, &ce) || !errors.Is(err, errs.ErrUnknownStyle) {
		t.Fatalf("expected unknown style config error, got %v", err)
	}
	if ce.Path != "sections[0].bands[1].elements[2].style" {
		t.Fatalf("path = %q", ce.Path)
	}
}

func TestResolveInvalidColor(t *testing.T) {
	_, err := NewResolver(nil).Resolve("", &template.Style{Color: template.Ptr("#12")}, "el")
	if !errors.Is(err, errs.ErrInvalidStyle) {
		t.Fatalf("expected invalid style, got %v", err)
	}
}

func TestNormalizePadding(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Padding
	}{
		{"nil", nil, Padding{}},
		{"number", 5.0, Padding{5, 5, 5, 5}},
		{"int", 3, Padding{3, 3, 3, 3}},
		{"two", []any{1.0, 2.0}, Padding{1, 2, 1, 2}},
		{"three", []any{1.0, 2.0, 3.0}, Padding{1, 2, 3, 2}},
		{"four", []any{1.0, 2.0, 3.0, 4.0}, Padding{1, 2, 3, 4}},
		{"object", map[string]any{"top": 7.0, "left": 2.0}, Padding{Top: 7, Left: 2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePadding(tc.in)
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
	for _, bad := range []any{"5", []any{1.0, 2.0, 3.0, 4.0, 5.0}, map[string]any{"top": "x"}} {
		if _, err := NormalizePadding(bad); err == nil {
			t.Fatalf("expected error for %#v", bad)
		}
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want builder.Color
	}{
		{"#fff", builder.Color{R: 1, G: 1, B: 1, A: 1}},
		{"#FF0000", builder.Color{R: 1, A: 1}},
		{"rgb(0, 0, 255)", builder.Color{B: 1, A: 1}},
		{"rgba(255,255,255,0.5)", builder.Color{R: 1, G: 1, B: 1, A: 0.5}},
		{"Black", builder.Color{A: 1}},
		{"transparent", builder.Color{}},
	}
	for _, tc := range tests {
		got, err := ParseColor(tc.in)
		if err != nil {
			t.Fatalf("%s: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%s: got %+v, want %+v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"#12", "rgb(1,2)", "chartreuse-ish", "#gggggg"} {
		if _, err := ParseColor(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
