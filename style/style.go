// Package style merges the style layers of an element into one effective
// style: built-in defaults, the document default style, the named style and
// the element's own overrides, each layer shallowly overriding the one below.
package style

import (
	"fmt"
	"strings"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/errs"
	"github.com/wudi/reportkit/template"
)

// Effective is a fully resolved style.
type Effective struct {
	FontFamily    string
	FontSize      float64
	Weight        template.FontWeight
	Italic        bool
	Color         builder.Color
	Align         string
	VerticalAlign string
	LineHeight    float64
	BorderColor   builder.Color
	BorderWidth   float64
	Padding       Padding
	Opacity       float64
	Widows        int
	Orphans       int
	Background    *template.Background
}

// Bold reports whether the weight falls in the bold class.
func (e Effective) Bold() bool { return e.Weight.IsBold() }

// LineAdvance is the distance between baselines.
func (e Effective) LineAdvance() float64 { return e.FontSize * e.LineHeight }

// Builtin returns the bottom style layer.
func Builtin() template.Style {
	return template.Style{
		FontFamily:    template.Ptr("Helvetica"),
		FontSize:      template.Ptr(10.0),
		FontWeight:    template.Ptr(template.WeightNormal),
		FontStyle:     template.Ptr("normal"),
		Color:         template.Ptr("#000000"),
		Align:         template.Ptr("left"),
		VerticalAlign: template.Ptr("top"),
		LineHeight:    template.Ptr(1.2),
		BorderWidth:   template.Ptr(0.0),
		Opacity:       template.Ptr(1.0),
		Widows:        template.Ptr(1),
		Orphans:       template.Ptr(1),
	}
}

// Merge overlays the set fields of each layer in order; later layers win.
// Nested values (padding, background) are replaced, never merged.
func Merge(layers ...*template.Style) template.Style {
	var out template.Style
	for _, l := range layers {
		if l == nil {
			continue
		}
		if l.FontFamily != nil {
			out.FontFamily = l.FontFamily
		}
		if l.FontSize != nil {
			out.FontSize = l.FontSize
		}
		if l.FontWeight != nil {
			out.FontWeight = l.FontWeight
		}
		if l.FontStyle != nil {
			out.FontStyle = l.FontStyle
		}
		if l.Color != nil {
			out.Color = l.Color
		}
		if l.Align != nil {
			out.Align = l.Align
		}
		if l.VerticalAlign != nil {
			out.VerticalAlign = l.VerticalAlign
		}
		if l.LineHeight != nil {
			out.LineHeight = l.LineHeight
		}
		if l.BorderColor != nil {
			out.BorderColor = l.BorderColor
		}
		if l.BorderWidth != nil {
			out.BorderWidth = l.BorderWidth
		}
		if l.Padding != nil {
			out.Padding = l.Padding
		}
		if l.Opacity != nil {
			out.Opacity = l.Opacity
		}
		if l.Widows != nil {
			out.Widows = l.Widows
		}
		if l.Orphans != nil {
			out.Orphans = l.Orphans
		}
		if l.Background != nil {
			out.Background = l.Background
		}
	}
	return out
}

// Resolver resolves element styles against one template.
type Resolver struct {
	builtin  template.Style
	defaults template.Style
	named    map[string]template.Style
}

func NewResolver(t *template.Template) *Resolver {
	r := &Resolver{builtin: Builtin(), named: map[string]template.Style{}}
	if t != nil {
		r.defaults = t.DefaultStyle
		for k, v := range t.Styles {
			r.named[k] = v
		}
	}
	return r
}

// Layers returns the merged sparse style for a named style and overrides.
// An unknown name is a configuration error at path.
func (r *Resolver) Layers(name string, overrides *template.Style, path string) (template.Style, error) {
	layers := []*template.Style{&r.builtin, &r.defaults}
	if name != "" {
		named, ok := r.named[name]
		if !ok {
			return template.Style{}, errs.Config(path+".style", errs.ErrUnknownStyle, "%q", name)
		}
		layers = append(layers, &named)
	}
	layers = append(layers, overrides)
	return Merge(layers...), nil
}

// Resolve returns the effective style of an element.
func (r *Resolver) Resolve(name string, overrides *template.Style, path string) (Effective, error) {
	merged, err := r.Layers(name, overrides, path)
	if err != nil {
		return Effective{}, err
	}
	eff, err := Compute(merged)
	if err != nil {
		return Effective{}, errs.Config(path, errs.ErrInvalidStyle, "%v", err)
	}
	return eff, nil
}

// Compute converts a merged style into an Effective one. Unset fields take
// the built-in defaults.
func Compute(s template.Style) (Effective, error) {
	s = Merge(template.Ptr(Builtin()), &s)
	eff := Effective{
		FontFamily:    *s.FontFamily,
		FontSize:      *s.FontSize,
		Weight:        *s.FontWeight,
		Italic:        strings.EqualFold(*s.FontStyle, "italic") || strings.EqualFold(*s.FontStyle, "oblique"),
		Align:         strings.ToLower(*s.Align),
		VerticalAlign: strings.ToLower(*s.VerticalAlign),
		LineHeight:    *s.LineHeight,
		BorderWidth:   *s.BorderWidth,
		Opacity:       clamp01(*s.Opacity),
		Widows:        *s.Widows,
		Orphans:       *s.Orphans,
		Background:    s.Background,
	}
	var err error
	if eff.Color, err = ParseColor(*s.Color); err != nil {
		return Effective{}, fmt.Errorf("color: %w", err)
	}
	if s.BorderColor != nil {
		if eff.BorderColor, err = ParseColor(*s.BorderColor); err != nil {
			return Effective{}, fmt.Errorf("borderColor: %w", err)
		}
	}
	if eff.Padding, err = NormalizePadding(s.Padding); err != nil {
		return Effective{}, err
	}
	if eff.FontSize <= 0 {
		return Effective{}, fmt.Errorf("fontSize must be positive, got %v", eff.FontSize)
	}
	if eff.LineHeight <= 0 {
		eff.LineHeight = 1.2
	}
	if eff.Widows < 1 {
		eff.Widows = 1
	}
	if eff.Orphans < 1 {
		eff.Orphans = 1
	}
	return eff, nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
