// Package fonts resolves the fonts a template needs, embeds each distinct
// face once and measures and encodes text for drawing.
package fonts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// Spec is a (family, weight class, style class) triple.
type Spec struct {
	Family string
	Bold   bool
	Italic bool
	// Source is the first template path that referenced the triple.
	Source string
}

// Key is the case-insensitive identity of the triple.
func (s Spec) Key() string { return key(s.Family, s.Bold, s.Italic) }

func (s Spec) String() string {
	return fmt.Sprintf("%s (bold=%t, italic=%t)", s.Family, s.Bold, s.Italic)
}

func key(family string, bold, italic bool) string {
	return fmt.Sprintf("%s|%t|%t", strings.ToLower(strings.TrimSpace(family)), bold, italic)
}

// SpecOf derives the triple of a merged style.
func SpecOf(s template.Style) Spec {
	eff := style.Merge(template.Ptr(style.Builtin()), &s)
	return Spec{
		Family: *eff.FontFamily,
		Bold:   eff.FontWeight.IsBold(),
		Italic: strings.EqualFold(*eff.FontStyle, "italic") || strings.EqualFold(*eff.FontStyle, "oblique"),
	}
}

// CollectSpecs returns every triple referenced by the default style, the
// named styles, element overrides and rich-text run overrides, sorted and
// deduplicated.
func CollectSpecs(t *template.Template) ([]Spec, error) {
	c := collector{seen: map[string]Spec{}, styles: style.NewResolver(t)}
	c.add(SpecOf(t.DefaultStyle), "defaultStyle")
	names := make([]string, 0, len(t.Styles))
	for name := range t.Styles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		merged, err := c.styles.Layers(name, nil, "styles."+name)
		if err != nil {
			return nil, err
		}
		c.add(SpecOf(merged), "styles."+name)
	}
	for i := range t.Sections {
		for j := range t.Sections[i].Bands {
			for k := range t.Sections[i].Bands[j].Elements {
				path := fmt.Sprintf("sections[%d].bands[%d].elements[%d]", i, j, k)
				if err := c.element(&t.Sections[i].Bands[j].Elements[k], path); err != nil {
					return nil, err
				}
			}
		}
	}
	out := make([]Spec, 0, len(c.seen))
	for _, s := range c.seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

type collector struct {
	seen   map[string]Spec
	styles *style.Resolver
}

func (c *collector) add(s Spec, source string) {
	if _, ok := c.seen[s.Key()]; ok {
		return
	}
	s.Source = source
	c.seen[s.Key()] = s
}

func (c *collector) element(el *template.Element, path string) error {
	merged, err := c.styles.Layers(el.Style, el.StyleOverrides, path)
	if err != nil {
		return err
	}
	if el.Style != "" || el.StyleOverrides != nil {
		c.add(SpecOf(merged), path)
	}
	runs, _ := el.Properties["runs"].([]any)
	for i, r := range runs {
		run, ok := r.(map[string]any)
		if !ok {
			continue
		}
		rs, err := RunStyle(run)
		if err != nil {
			return fmt.Errorf("%s.properties.runs[%d]: %w", path, i, err)
		}
		c.add(SpecOf(style.Merge(&merged, &rs)), fmt.Sprintf("%s.properties.runs[%d]", path, i))
	}
	for i := range el.Children {
		if err := c.element(&el.Children[i], fmt.Sprintf("%s.children[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

// RunStyle decodes the style override of a rich-text run: an optional
// "style" object plus "bold" and "italic" shorthands.
func RunStyle(run map[string]any) (template.Style, error) {
	var s template.Style
	if raw, ok := run["style"]; ok && raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return s, err
		}
		if err := json.Unmarshal(b, &s); err != nil {
			return s, err
		}
	}
	if b, ok := run["bold"].(bool); ok {
		w := template.WeightNormal
		if b {
			w = template.WeightBold
		}
		s.FontWeight = &w
	}
	if it, ok := run["italic"].(bool); ok {
		v := "normal"
		if it {
			v = "italic"
		}
		s.FontStyle = &v
	}
	return s, nil
}
