package elements

import (
	"fmt"
	"strings"
	"testing"

	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
	"github.com/wudi/reportkit/template"
)

// fakeHost sizes children from their declared box and records where they
// are drawn. A child with the "hidden" property measures as nothing.
type fakeHost struct {
	drawn []string
}

func (h *fakeHost) MeasureChild(parent *plugin.MeasureContext, i int, width, height float64) (plugin.Size, error) {
	el := parent.Children[i]
	if el.Properties["hidden"] == true {
		return plugin.Size{}, nil
	}
	if width <= 0 {
		width = el.Width
	}
	return plugin.Size{Width: width, Height: el.Height}, nil
}

func (h *fakeHost) RenderChild(parent *plugin.RenderContext, i int, x, y, width, height float64) error {
	h.drawn = append(h.drawn, fmt.Sprintf("%d@%g,%g %gx%g", i, x, y, width, height))
	return nil
}

func sized(w, h float64) template.Element {
	return template.Element{Type: "rectangle", Width: w, Height: h}
}

func TestContainerLayouts(t *testing.T) {
	hidden := template.Element{Type: "rectangle", Width: 10, Height: 10, Properties: map[string]any{"hidden": true}}
	cases := []struct {
		name     string
		props    map[string]any
		width    float64
		children []template.Element
		want     string
		height   float64
	}{
		{
			name:     "vstack",
			props:    map[string]any{"layout": "vstack", "gap": 5, "align": "center"},
			width:    100,
			children: []template.Element{sized(20, 10), hidden, sized(40, 20)},
			want:     "0@40,0 20x10 2@30,15 40x20",
			height:   35,
		},
		{
			name:     "hstack wrap",
			props:    map[string]any{"layout": "hstack", "gap": 5, "align": "end", "wrap": true},
			width:    50,
			children: []template.Element{sized(30, 10), sized(30, 20), sized(10, 5)},
			want:     "0@0,0 30x10 1@0,15 30x20 2@35,30 10x5",
			height:   35,
		},
		{
			name:     "hstack",
			props:    map[string]any{"layout": "hstack", "gap": 4, "align": "center"},
			width:    0,
			children: []template.Element{sized(30, 10), sized(20, 20)},
			want:     "0@0,5 30x10 1@34,0 20x20",
			height:   20,
		},
		{
			name:     "grid",
			props:    map[string]any{"layout": "grid", "columns": 2, "gap": 10},
			width:    100,
			children: []template.Element{sized(0, 10), sized(0, 30), sized(0, 20)},
			want:     "0@0,0 45x10 1@55,0 45x30 2@0,40 45x20",
			height:   60,
		},
		{
			name:  "absolute",
			props: nil,
			width: 100,
			children: []template.Element{
				{Type: "rectangle", X: 5, Y: 40, Width: 10, Height: 10},
				{Type: "rectangle", X: 50, Y: 0, Width: 20, Height: 5},
			},
			want:   "0@5,40 10x10 1@50,0 20x5",
			height: 50,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host := &fakeHost{}
			m := newMeasure(t, tc.width, 0, host, nil)
			m.Children = tc.children
			props := resolve(t, Container{}, tc.props)
			size, err := Container{}.Measure(m, props)
			if err != nil {
				t.Fatalf("measure: %v", err)
			}
			if size.Height != tc.height {
				t.Fatalf("height = %v, want %v", size.Height, tc.height)
			}
			rc := newRender(m, coords.Rect{W: size.Width, H: size.Height})
			if err := (Container{}).Render(rc, props); err != nil {
				t.Fatalf("render: %v", err)
			}
			if got := strings.Join(host.drawn, " "); got != tc.want {
				t.Fatalf("drawn %q, want %q", got, tc.want)
			}
		})
	}
}

func TestContainerPadding(t *testing.T) {
	host := &fakeHost{}
	m := newMeasure(t, 100, 0, host, nil)
	m.Style.Padding = style.Padding{Top: 2, Right: 4, Bottom: 6, Left: 8}
	m.Children = []template.Element{sized(0, 10)}
	props := resolve(t, Container{}, map[string]any{"layout": "vstack"})
	size, err := Container{}.Measure(m, props)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if size.Width != 100 || size.Height != 18 {
		t.Fatalf("size = %+v", size)
	}
	if err := (Container{}).Render(newRender(m, coords.Rect{W: 100, H: 18}), props); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := host.drawn[0]; got != "0@8,2 88x10" {
		t.Fatalf("drawn %q", got)
	}
}

func TestContainerValidate(t *testing.T) {
	props, _ := Container{}.ResolveProps(map[string]any{"layout": "flex", "align": "baseline", "gap": -1})
	if errs := (Container{}).Validate(props); len(errs) != 3 {
		t.Fatalf("errors = %v", errs)
	}
	props, _ = Container{}.ResolveProps(map[string]any{"layout": "grid", "columns": 0})
	if errs := (Container{}).Validate(props); len(errs) != 1 || errs[0].Field != "columns" {
		t.Fatalf("errors = %v", errs)
	}
}
