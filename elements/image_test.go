package elements

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/plugin"
)

func pngURI(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestImageMeasureEmbedsOnce(t *testing.T) {
	ctx := newMeasure(t, 40, 0, nil, nil)
	props := resolve(t, Image{}, map[string]any{"src": pngURI(t, 4, 2)})
	var sizes []plugin.Size
	for i := 0; i < 2; i++ {
		s, err := Image{}.Measure(ctx, props)
		if err != nil {
			t.Fatalf("measure: %v", err)
		}
		sizes = append(sizes, s)
	}
	if sizes[0] != sizes[1] || sizes[0].Width != 40 || sizes[0].Height != 20 {
		t.Fatalf("sizes = %v", sizes)
	}
	if n := plugin.CacheFor[*builder.Image](ctx.Store, "image").Len(); n != 1 {
		t.Fatalf("cache entries = %d", n)
	}
}

func TestImageNaturalSize(t *testing.T) {
	ctx := newMeasure(t, 0, 0, nil, nil)
	s, err := Image{}.Measure(ctx, resolve(t, Image{}, map[string]any{"src": pngURI(t, 6, 3)}))
	if err != nil {
		t.Fatalf("measure: %v", err)
	}
	if s.Width != 6 || s.Height != 3 {
		t.Fatalf("size = %+v", s)
	}
}

func TestImageRenderFits(t *testing.T) {
	box := coords.Rect{X: 10, Y: 0, W: 40, H: 40}
	t.Run("contain", func(t *testing.T) {
		rc := newRender(newMeasure(t, 40, 40, nil, nil), box)
		if err := (Image{}).Render(rc, resolve(t, Image{}, map[string]any{"src": pngURI(t, 4, 2)})); err != nil {
			t.Fatalf("render: %v", err)
		}
		cm := operands(rc.Page, "cm")
		if len(cm) != 1 || cm[0][0] != 40 || cm[0][3] != 20 || cm[0][4] != 10 || cm[0][5] != pageHeight-20 {
			t.Fatalf("cm = %v", cm)
		}
	})
	t.Run("cover", func(t *testing.T) {
		m := newMeasure(t, 40, 40, nil, nil)
		m.Style.Align = "center"
		rc := newRender(m, box)
		if err := (Image{}).Render(rc, resolve(t, Image{}, map[string]any{"src": pngURI(t, 4, 2), "fit": "cover"})); err != nil {
			t.Fatalf("render: %v", err)
		}
		if got := operators(rc.Page); got != "q re W n q cm Do Q Q" {
			t.Fatalf("ops = %q", got)
		}
		cm := operands(rc.Page, "cm")[0]
		if cm[0] != 80 || cm[3] != 40 || cm[4] != -10 {
			t.Fatalf("cm = %v", cm)
		}
	})
}

func TestFitImage(t *testing.T) {
	box := coords.Rect{X: 0, Y: 0, W: 100, H: 50}
	cases := []struct {
		fit, align, valign string
		want               coords.Rect
	}{
		{"fill", "left", "top", box},
		{"contain", "left", "top", coords.Rect{W: 50, H: 50}},
		{"contain", "right", "top", coords.Rect{X: 50, W: 50, H: 50}},
		{"cover", "left", "middle", coords.Rect{Y: -25, W: 100, H: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.fit+"/"+tc.align, func(t *testing.T) {
			if got := fitImage(box, 10, 10, tc.fit, tc.align, tc.valign); got != tc.want {
				t.Fatalf("fit = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 100, 50))
	if got := downscale(src, 10).Bounds(); got.Dx() != 10 || got.Dy() != 5 {
		t.Fatalf("bounds = %v", got)
	}
	if got := downscale(src, 0); got != image.Image(src) {
		t.Fatal("a zero limit must keep the image")
	}
}

func TestImageErrors(t *testing.T) {
	t.Run("undecodable", func(t *testing.T) {
		ctx := newMeasure(t, 10, 10, nil, nil)
		_, err := Image{}.Measure(ctx, resolve(t, Image{}, map[string]any{"src": "data:text/plain,hello"}))
		if err == nil || !strings.Contains(err.Error(), "decode image") {
			t.Fatalf("err = %v", err)
		}
		if n := plugin.CacheFor[*builder.Image](ctx.Store, "image").Len(); n != 0 {
			t.Fatalf("failure cached: %d entries", n)
		}
	})
	t.Run("no loader", func(t *testing.T) {
		ctx := newMeasure(t, 10, 10, nil, nil)
		ctx.Resources = nil
		_, err := Image{}.Measure(ctx, resolve(t, Image{}, map[string]any{"src": "logo.png"}))
		if !errors.Is(err, errNoLoader) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("validate", func(t *testing.T) {
		props, _ := Image{}.ResolveProps(map[string]any{"fit": "stretch"})
		if errs := (Image{}).Validate(props); len(errs) != 2 {
			t.Fatalf("errors = %v", errs)
		}
	})
}
