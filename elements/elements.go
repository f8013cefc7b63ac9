// Package elements provides the built-in element types: text, markdown,
// shapes, images, barcodes and containers. Templates render end to end with
// Default; callers may register their own types next to these.
package elements

import (
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
)

// Default returns a registry with every built-in element type.
func Default() *plugin.Registry {
	return plugin.NewRegistry(
		Text{},
		Markdown{},
		Rectangle{},
		Ellipse{},
		Line{},
		Path{},
		Image{},
		Barcode{},
		Container{},
	)
}

// inner shrinks a template-space box by the style padding.
func inner(box coords.Rect, p style.Padding) coords.Rect {
	return coords.Rect{
		X: box.X + p.Left,
		Y: box.Y + p.Top,
		W: max(box.W-p.Horizontal(), 0),
		H: max(box.H-p.Vertical(), 0),
	}
}

// alignX offsets content of width w inside a box of width avail.
func alignX(align string, avail, w float64) float64 {
	switch align {
	case "center":
		return (avail - w) / 2
	case "right":
		return avail - w
	}
	return 0
}

// alignY offsets content of height h inside a box of height avail.
func alignY(align string, avail, h float64) float64 {
	if h >= avail {
		return 0
	}
	switch align {
	case "middle", "center":
		return (avail - h) / 2
	case "bottom":
		return avail - h
	}
	return 0
}

func required(field, value string) []plugin.FieldError {
	if value == "" {
		return []plugin.FieldError{{Field: field, Message: "is required"}}
	}
	return nil
}
