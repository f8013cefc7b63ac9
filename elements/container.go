package elements

import (
	"fmt"

	"github.com/wudi/reportkit/plugin"
)

// ContainerProps configures how a container places its children.
//
//   - absolute: children keep their own x and y.
//   - vstack: children stacked top to bottom, aligned horizontally.
//   - hstack: children side by side, aligned vertically; Wrap starts a new
//     row when the next child would overflow the width.
//   - grid: Columns equal cells per row, children aligned vertically in
//     their cell.
type ContainerProps struct {
	Layout  string  `json:"layout"`
	Gap     float64 `json:"gap,omitempty"`
	Align   string  `json:"align,omitempty"`
	Columns int     `json:"columns,omitempty"`
	Wrap    bool    `json:"wrap,omitempty"`
}

// Container lays out nested elements. The children are measured and drawn
// by the layout engine through the context callbacks.
type Container struct{}

func (Container) Type() string { return "container" }

func (Container) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, ContainerProps{Layout: "absolute", Align: "start", Columns: 2})
}

func (Container) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[ContainerProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "layout", Message: err.Error()}}
	}
	var errs []plugin.FieldError
	switch p.Layout {
	case "absolute", "hstack", "vstack", "grid":
	default:
		errs = append(errs, plugin.FieldError{Field: "layout", Message: fmt.Sprintf("unknown layout %q", p.Layout)})
	}
	switch p.Align {
	case "start", "center", "end":
	default:
		errs = append(errs, plugin.FieldError{Field: "align", Message: fmt.Sprintf("unknown align %q", p.Align)})
	}
	if p.Gap < 0 {
		errs = append(errs, plugin.FieldError{Field: "gap", Message: "must not be negative"})
	}
	if p.Layout == "grid" && p.Columns < 1 {
		errs = append(errs, plugin.FieldError{Field: "columns", Message: "must be at least 1"})
	}
	return errs
}

// slot is a placed child relative to the container's top-left corner.
type slot struct {
	index      int
	x, y, w, h float64
}

// plan measures every child and positions it. It returns the slots and the
// content extent, padding included.
func (p ContainerProps) plan(ctx *plugin.MeasureContext) ([]slot, plugin.Size, error) {
	pad := ctx.Style.Padding
	avail := 0.0
	if ctx.Width > 0 {
		avail = max(ctx.Width-pad.Horizontal(), 0)
	}
	var (
		slots []slot
		err   error
	)
	switch p.Layout {
	case "vstack":
		slots, err = p.vstack(ctx, avail)
	case "hstack":
		slots, err = p.hstack(ctx, avail)
	case "grid":
		slots, err = p.grid(ctx, avail)
	default:
		slots, err = p.absolute(ctx)
	}
	if err != nil {
		return nil, plugin.Size{}, err
	}
	var w, h float64
	for i := range slots {
		slots[i].x += pad.Left
		slots[i].y += pad.Top
		w = max(w, slots[i].x+slots[i].w)
		h = max(h, slots[i].y+slots[i].h)
	}
	w += pad.Right
	h += pad.Bottom
	if ctx.Width > 0 {
		w = ctx.Width
	}
	return slots, plugin.Size{Width: w, Height: h}, nil
}

// child measures child i; hidden children come back as false.
func child(ctx *plugin.MeasureContext, i int, width, height float64) (plugin.Size, bool, error) {
	s, err := ctx.MeasureChild(i, width, height)
	if err != nil {
		return plugin.Size{}, false, err
	}
	return s, s.Width > 0 || s.Height > 0, nil
}

func (p ContainerProps) absolute(ctx *plugin.MeasureContext) ([]slot, error) {
	var out []slot
	for i, el := range ctx.Children {
		s, ok, err := child(ctx, i, 0, 0)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, slot{index: i, x: el.X, y: el.Y, w: s.Width, h: s.Height})
		}
	}
	return out, nil
}

func (p ContainerProps) vstack(ctx *plugin.MeasureContext, avail float64) ([]slot, error) {
	var out []slot
	y := 0.0
	for i, el := range ctx.Children {
		w := el.Width
		if w <= 0 {
			w = avail
		}
		s, ok, err := child(ctx, i, w, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(out) > 0 {
			y += p.Gap
		}
		out = append(out, slot{index: i, y: y, w: s.Width, h: s.Height})
		y += s.Height
	}
	width := avail
	if width <= 0 {
		for _, s := range out {
			width = max(width, s.w)
		}
	}
	for i := range out {
		out[i].x = crossOffset(p.Align, width, out[i].w)
	}
	return out, nil
}

func (p ContainerProps) hstack(ctx *plugin.MeasureContext, avail float64) ([]slot, error) {
	var out []slot
	var row []int
	x, y, rowH := 0.0, 0.0, 0.0
	endRow := func() {
		for _, j := range row {
			out[j].y = y + crossOffset(p.Align, rowH, out[j].h)
		}
		y += rowH + p.Gap
		x, rowH, row = 0, 0, row[:0]
	}
	for i, el := range ctx.Children {
		s, ok, err := child(ctx, i, el.Width, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if len(row) > 0 {
			if p.Wrap && avail > 0 && x+p.Gap+s.Width > avail+1e-9 {
				endRow()
			} else {
				x += p.Gap
			}
		}
		row = append(row, len(out))
		out = append(out, slot{index: i, x: x, w: s.Width, h: s.Height})
		x += s.Width
		rowH = max(rowH, s.Height)
	}
	if len(row) > 0 {
		endRow()
	}
	return out, nil
}

func (p ContainerProps) grid(ctx *plugin.MeasureContext, avail float64) ([]slot, error) {
	cols := max(p.Columns, 1)
	cell := 0.0
	if avail > 0 {
		cell = max((avail-p.Gap*float64(cols-1))/float64(cols), 0)
	}
	var out []slot
	var row []int
	y, rowH := 0.0, 0.0
	endRow := func() {
		for _, j := range row {
			out[j].y = y + crossOffset(p.Align, rowH, out[j].h)
		}
		y += rowH + p.Gap
		rowH, row = 0, row[:0]
	}
	for i, el := range ctx.Children {
		w := cell
		if w <= 0 {
			w = el.Width
		}
		s, ok, err := child(ctx, i, w, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		col := len(row)
		out = append(out, slot{index: i, x: float64(col) * (w + p.Gap), w: s.Width, h: s.Height})
		row = append(row, len(out)-1)
		rowH = max(rowH, s.Height)
		if len(row) == cols {
			endRow()
		}
	}
	if len(row) > 0 {
		endRow()
	}
	return out, nil
}

// crossOffset positions an item of size n on the cross axis of a line of
// size avail.
func crossOffset(align string, avail, n float64) float64 {
	switch align {
	case "center":
		return max((avail-n)/2, 0)
	case "end":
		return max(avail-n, 0)
	}
	return 0
}

func (Container) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[ContainerProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	_, size, err := p.plan(ctx)
	return size, err
}

func (Container) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[ContainerProps](props)
	if err != nil {
		return err
	}
	slots, _, err := p.plan(&ctx.MeasureContext)
	if err != nil {
		return err
	}
	for _, s := range slots {
		if err := ctx.RenderChild(s.index, s.x, s.y, s.w, s.h); err != nil {
			return err
		}
	}
	return nil
}
