package elements

import (
	"strings"
	"testing"

	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/plugin"
)

func TestBarcodeGenerationIsMemoized(t *testing.T) {
	ctx := newMeasure(t, 0, 0, nil, nil)
	props := resolve(t, Barcode{}, map[string]any{"format": "qr", "data": "https://example.com/invoice/42"})
	first, err := Barcode{}.Measure(ctx, props)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	cache := plugin.CacheFor[*modules](ctx.Store, "barcode")
	before, _ := generate(ctx, props.(BarcodeProps))
	second, err := Barcode{}.Measure(ctx, props)
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if first != second || first.Width <= 0 || first.Width != first.Height {
		t.Fatalf("sizes = %+v, %+v", first, second)
	}
	if n := cache.Len(); n != 1 {
		t.Fatalf("cache entries = %d, want 1", n)
	}
	after, _ := generate(ctx, props.(BarcodeProps))
	if before == nil || after != before {
		t.Fatal("second generation must return the cached symbol")
	}
}

func TestBarcodeFormats(t *testing.T) {
	cases := []struct {
		format, data string
		linear       bool
	}{
		{"qr", "hello", false},
		{"datamatrix", "hello", false},
		{"pdf417", "hello pdf417 world", false},
		{"code128", "ABC-123", true},
		{"code39", "ABC", true},
		{"ean", "5901234123457", true},
		{"codabar", "A123B", true},
		{"i2of5", "1234", true},
	}
	for _, tc := range cases {
		t.Run(tc.format, func(t *testing.T) {
			ctx := newMeasure(t, 0, 0, nil, nil)
			m, err := generate(ctx, resolve(t, Barcode{}, map[string]any{"format": tc.format, "data": tc.data}).(BarcodeProps))
			if err != nil {
				t.Fatalf("generate: %v", err)
			}
			if m.linear() != tc.linear {
				t.Fatalf("linear = %v (%dx%d)", m.linear(), m.w, m.h)
			}
		})
	}
}

func TestBarcodeRenderLinear(t *testing.T) {
	box := coords.Rect{X: 10, Y: 10, W: 120, H: 30}
	rc := newRender(newMeasure(t, box.W, box.H, nil, nil), box)
	if err := (Barcode{}).Render(rc, resolve(t, Barcode{}, map[string]any{"format": "code128", "data": "RK-0001"})); err != nil {
		t.Fatalf("render: %v", err)
	}
	bars := operands(rc.Page, "re")
	if len(bars) == 0 {
		t.Fatal("no bars drawn")
	}
	for _, b := range bars {
		if b[1] != pageHeight-40 || b[3] != 30 || b[0] < 10 || b[0]+b[2] > 130+1e-6 {
			t.Fatalf("bar %v outside the box", b)
		}
	}
}

func TestBarcodeRenderSquareModules(t *testing.T) {
	box := coords.Rect{X: 0, Y: 0, W: 100, H: 50}
	rc := newRender(newMeasure(t, box.W, box.H, nil, nil), box)
	if err := (Barcode{}).Render(rc, resolve(t, Barcode{}, map[string]any{"format": "qr", "data": "x"})); err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, r := range operands(rc.Page, "re") {
		if r[0] < 25-1e-6 || r[0]+r[2] > 75+1e-6 {
			t.Fatalf("module %v not centred", r)
		}
	}
}

func TestBarcodeErrors(t *testing.T) {
	t.Run("invalid payload", func(t *testing.T) {
		ctx := newMeasure(t, 0, 0, nil, nil)
		props := resolve(t, Barcode{}, map[string]any{"format": "ean", "data": "12345"})
		_, err := Barcode{}.Measure(ctx, props)
		if err == nil || !strings.Contains(err.Error(), `ean barcode for "12345"`) {
			t.Fatalf("err = %v", err)
		}
		if n := plugin.CacheFor[*modules](ctx.Store, "barcode").Len(); n != 0 {
			t.Fatalf("failure cached: %d entries", n)
		}
	})
	t.Run("validate", func(t *testing.T) {
		props, _ := Barcode{}.ResolveProps(map[string]any{"format": "upc", "level": "Z", "columns": 0})
		errs := (Barcode{}).Validate(props)
		var fields []string
		for _, e := range errs {
			fields = append(fields, e.Field)
		}
		if strings.Join(fields, ",") != "format,level,columns" {
			t.Fatalf("fields = %v", fields)
		}
	})
	t.Run("numeric data", func(t *testing.T) {
		props, _ := Barcode{}.ResolveProps(map[string]any{"format": "ean", "data": 5901234123457.0})
		if p := props.(BarcodeProps); p.Data != "5901234123457" {
			t.Fatalf("data = %q", p.Data)
		}
	})
}
