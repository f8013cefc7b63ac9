package style

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wudi/reportkit/builder"
)

// Padding is per-side inner spacing in points.
type Padding struct {
	Top, Right, Bottom, Left float64
}

// Horizontal is Left + Right.
func (p Padding) Horizontal() float64 { return p.Left + p.Right }

// Vertical is Top + Bottom.
func (p Padding) Vertical() float64 { return p.Top + p.Bottom }

// NormalizePadding accepts a number, an array of 1 to 4 numbers in CSS order
// ([all], [vertical, horizontal], [top, horizontal, bottom],
// [top, right, bottom, left]) or an object with top/right/bottom/left keys.
func NormalizePadding(v any) (Padding, error) {
	switch t := v.(type) {
	case nil:
		return Padding{}, nil
	case []any:
		vals := make([]float64, len(t))
		for i, item := range t {
			n, ok := toFloat(item)
			if !ok {
				return Padding{}, fmt.Errorf("padding[%d]: expected a number, got %T", i, item)
			}
			vals[i] = n
		}
		return paddingFromSlice(vals)
	case []float64:
		return paddingFromSlice(t)
	case map[string]any:
		var p Padding
		for key, dst := range map[string]*float64{"top": &p.Top, "right": &p.Right, "bottom": &p.Bottom, "left": &p.Left} {
			raw, ok := t[key]
			if !ok {
				continue
			}
			n, ok := toFloat(raw)
			if !ok {
				return Padding{}, fmt.Errorf("padding.%s: expected a number, got %T", key, raw)
			}
			*dst = n
		}
		return p, nil
	case Padding:
		return t, nil
	}
	if n, ok := toFloat(v); ok {
		return Padding{n, n, n, n}, nil
	}
	return Padding{}, fmt.Errorf("padding: unsupported value %T", v)
}

func paddingFromSlice(v []float64) (Padding, error) {
	switch len(v) {
	case 1:
		return Padding{v[0], v[0], v[0], v[0]}, nil
	case 2:
		return Padding{v[0], v[1], v[0], v[1]}, nil
	case 3:
		return Padding{v[0], v[1], v[2], v[1]}, nil
	case 4:
		return Padding{v[0], v[1], v[2], v[3]}, nil
	}
	return Padding{}, fmt.Errorf("padding: expected 1 to 4 values, got %d", len(v))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

var namedColors = map[string]builder.Color{
	"black":  {R: 0, G: 0, B: 0, A: 1},
	"white":  {R: 1, G: 1, B: 1, A: 1},
	"red":    {R: 1, G: 0, B: 0, A: 1},
	"green":  {R: 0, G: 0.5, B: 0, A: 1},
	"blue":   {R: 0, G: 0, B: 1, A: 1},
	"yellow": {R: 1, G: 1, B: 0, A: 1},
	"orange": {R: 1, G: 0.647, B: 0, A: 1},
	"purple": {R: 0.5, G: 0, B: 0.5, A: 1},
	"gray":   {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"grey":   {R: 0.5, G: 0.5, B: 0.5, A: 1},
	"silver": {R: 0.753, G: 0.753, B: 0.753, A: 1},
	"navy":   {R: 0, G: 0, B: 0.5, A: 1},
}

// ParseColor parses #rgb, #rrggbb, rgb(r, g, b), rgba(r, g, b, a) and a few
// named colors. "transparent" and "" return the zero Color, which draws
// nothing.
func ParseColor(s string) (builder.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "transparent" || s == "none" {
		return builder.Color{}, nil
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		if len(hex) != 6 {
			return builder.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return builder.Color{}, fmt.Errorf("invalid hex color %q", s)
		}
		return builder.Color{
			R: float64(v>>16&0xff) / 255,
			G: float64(v>>8&0xff) / 255,
			B: float64(v&0xff) / 255,
			A: 1,
		}, nil
	}
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") {
		fn := s[:open]
		parts := strings.Split(s[open+1:len(s)-1], ",")
		if (fn == "rgb" && len(parts) == 3) || (fn == "rgba" && len(parts) == 4) {
			var c [4]float64
			c[3] = 1
			for i, p := range parts {
				n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					return builder.Color{}, fmt.Errorf("invalid color component %q in %q", p, s)
				}
				if i < 3 {
					n /= 255
				}
				c[i] = clamp01(n)
			}
			if c[3] == 0 {
				return builder.Color{}, nil
			}
			return builder.Color{R: c[0], G: c[1], B: c[2], A: c[3]}, nil
		}
	}
	return builder.Color{}, fmt.Errorf("unrecognized color %q", s)
}
