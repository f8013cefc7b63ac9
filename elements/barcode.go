package elements

import (
	"fmt"
	"image"
	"image/color"
	"sort"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/codabar"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/code39"
	"github.com/boombuler/barcode/datamatrix"
	"github.com/boombuler/barcode/ean"
	"github.com/boombuler/barcode/qr"
	"github.com/boombuler/barcode/twooffive"
	pdf417 "github.com/ruudk/golang-pdf417"
	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/style"
)

// BarcodeProps configures a barcode. Format is one of qr, datamatrix,
// pdf417, code128, code39, ean, codabar, 2of5 or i2of5.
type BarcodeProps struct {
	Format string `json:"format"`
	Data   string `json:"data"`
	// Level is the QR error correction level: L, M, Q or H.
	Level string `json:"level,omitempty"`
	// Checksum and FullASCII apply to code39.
	Checksum  bool `json:"checksum,omitempty"`
	FullASCII bool `json:"fullASCII,omitempty"`
	// Columns and Security apply to pdf417.
	Columns  int    `json:"columns,omitempty"`
	Security int    `json:"security,omitempty"`
	Color    string `json:"color,omitempty"`
	// Module is the module size in points used when the box has no size.
	Module float64 `json:"module,omitempty"`
}

// Barcode draws 1D and 2D barcodes as vector modules. Symbols are generated
// once per distinct props.
type Barcode struct{}

// modules is a generated symbol: a w by h grid of dark cells. Linear
// symbols have h == 1.
type modules struct {
	w, h int
	dark []bool
}

func (m *modules) at(x, y int) bool { return m.dark[y*m.w+x] }

func (m *modules) linear() bool { return m.h == 1 }

// linearHeight is the default bar height of a linear symbol in points.
const linearHeight = 30.0

type encoder func(p BarcodeProps) (image.Image, error)

var encoders = map[string]encoder{
	"qr": func(p BarcodeProps) (image.Image, error) {
		level, ok := qrLevels[strings.ToUpper(p.Level)]
		if !ok {
			return nil, fmt.Errorf("unknown QR level %q", p.Level)
		}
		return qr.Encode(p.Data, level, qr.Auto)
	},
	"datamatrix": func(p BarcodeProps) (image.Image, error) {
		return datamatrix.Encode(p.Data)
	},
	"pdf417": func(p BarcodeProps) (image.Image, error) {
		if p.Data == "" {
			return nil, fmt.Errorf("empty payload")
		}
		return pdf417.Encode(p.Data, p.Columns, p.Security), nil
	},
	"code128": func(p BarcodeProps) (image.Image, error) {
		return code128.Encode(p.Data)
	},
	"code39": func(p BarcodeProps) (image.Image, error) {
		return code39.Encode(p.Data, p.Checksum, p.FullASCII)
	},
	"ean": func(p BarcodeProps) (image.Image, error) {
		return ean.Encode(p.Data)
	},
	"codabar": func(p BarcodeProps) (image.Image, error) {
		return codabar.Encode(p.Data)
	},
	"2of5": func(p BarcodeProps) (image.Image, error) {
		return twooffive.Encode(p.Data, false)
	},
	"i2of5": func(p BarcodeProps) (image.Image, error) {
		return twooffive.Encode(p.Data, true)
	},
}

var qrLevels = map[string]qr.ErrorCorrectionLevel{
	"":  qr.M,
	"L": qr.L,
	"M": qr.M,
	"Q": qr.Q,
	"H": qr.H,
}

// Formats lists the supported barcode formats.
func Formats() []string {
	out := make([]string, 0, len(encoders))
	for k := range encoders {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (Barcode) Type() string { return "barcode" }

func (Barcode) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(stringifyKeys(raw, "data"), BarcodeProps{Format: "qr", Columns: 10, Security: 2, Module: 1})
}

func (Barcode) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[BarcodeProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "data", Message: err.Error()}}
	}
	var errs []plugin.FieldError
	if _, ok := encoders[p.Format]; !ok {
		errs = append(errs, plugin.FieldError{
			Field:   "format",
			Message: fmt.Sprintf("unknown format %q (want one of %s)", p.Format, strings.Join(Formats(), ", ")),
		})
	}
	if _, ok := qrLevels[strings.ToUpper(p.Level)]; !ok {
		errs = append(errs, plugin.FieldError{Field: "level", Message: fmt.Sprintf("unknown QR level %q", p.Level)})
	}
	if p.Columns < 1 || p.Columns > 30 {
		errs = append(errs, plugin.FieldError{Field: "columns", Message: "must be between 1 and 30"})
	}
	if p.Security < 0 || p.Security > 8 {
		errs = append(errs, plugin.FieldError{Field: "security", Message: "must be between 0 and 8"})
	}
	if p.Module <= 0 {
		errs = append(errs, plugin.FieldError{Field: "module", Message: "must be positive"})
	}
	if _, err := style.ParseColor(p.Color); err != nil {
		errs = append(errs, plugin.FieldError{Field: "color", Message: err.Error()})
	}
	return errs
}

// generate encodes the symbol, memoized by its props. An invalid payload
// for the format is reported with the format and the encoder's reason.
func generate(ctx *plugin.MeasureContext, p BarcodeProps) (*modules, error) {
	cache := plugin.CacheFor[*modules](ctx.Store, "barcode")
	return cache.Get(plugin.Key(p.Format, p.Data, p.Level, p.Checksum, p.FullASCII, p.Columns, p.Security), func() (*modules, error) {
		enc, ok := encoders[p.Format]
		if !ok {
			return nil, fmt.Errorf("unknown barcode format %q", p.Format)
		}
		img, err := enc(p)
		if err != nil {
			return nil, fmt.Errorf("%s barcode for %q: %w", p.Format, p.Data, err)
		}
		if bc, ok := img.(barcode.Barcode); ok {
			ctx.Log().Debug("barcode generated", observability.String("kind", bc.Metadata().CodeKind))
		}
		return toModules(img), nil
	})
}

// toModules samples one cell per pixel of the encoder output.
func toModules(img image.Image) *modules {
	b := img.Bounds()
	m := &modules{w: b.Dx(), h: b.Dy(), dark: make([]bool, b.Dx()*b.Dy())}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.dark[y*m.w+x] = g.Y < 128
		}
	}
	return m
}

func (Barcode) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[BarcodeProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	m, err := generate(ctx, p)
	if err != nil {
		return plugin.Size{}, err
	}
	w, h := ctx.Width, ctx.Height
	if w <= 0 {
		w = float64(m.w) * p.Module
	}
	if h <= 0 {
		h = float64(m.h) * p.Module
		if m.linear() {
			h = linearHeight
		}
	}
	return plugin.Size{Width: w, Height: h}, nil
}

// Render paints each horizontal run of dark modules as one rectangle.
// Two-dimensional symbols keep square modules and are centred in the box.
func (Barcode) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[BarcodeProps](props)
	if err != nil {
		return err
	}
	m, err := generate(&ctx.MeasureContext, p)
	if err != nil {
		return err
	}
	col, err := style.ParseColor(p.Color)
	if err != nil {
		return err
	}
	if col.A == 0 {
		col = builder.Color{A: 1}
	}
	r := ctx.PDFBox()
	mw, mh := r.W/float64(m.w), r.H/float64(m.h)
	x0, y0 := r.X, r.Y
	if !m.linear() {
		mw = min(mw, mh)
		mh = mw
		x0 += (r.W - mw*float64(m.w)) / 2
		y0 += (r.H - mh*float64(m.h)) / 2
	}
	opts := builder.RectOptions{Fill: true, FillColor: col}
	for y := 0; y < m.h; y++ {
		top := y0 + float64(m.h-y-1)*mh
		for x := 0; x < m.w; {
			if !m.at(x, y) {
				x++
				continue
			}
			start := x
			for x < m.w && m.at(x, y) {
				x++
			}
			ctx.Page.DrawRectangle(x0+float64(start)*mw, top, float64(x-start)*mw, mh, opts)
		}
	}
	return nil
}
