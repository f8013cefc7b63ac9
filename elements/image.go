package elements

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/wudi/reportkit/builder"
	"github.com/wudi/reportkit/coords"
	"github.com/wudi/reportkit/observability"
	"github.com/wudi/reportkit/plugin"
	"github.com/wudi/reportkit/resources"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageProps configures an image. Src is a file path, data: URI or http(s)
// URL. Images larger than MaxPixels on either side are downscaled before
// embedding; zero keeps the original size.
type ImageProps struct {
	Src       string `json:"src"`
	Fit       string `json:"fit"`
	MaxPixels int    `json:"maxPixels,omitempty"`
}

// Image draws a raster image fitted into the element box and aligned by
// the style's align and verticalAlign. Each source is embedded once per
// document.
type Image struct{}

const defaultMaxPixels = 2048

var errNoLoader = errors.New("no resource loader configured")

func (Image) Type() string { return "image" }

func (Image) ResolveProps(raw map[string]any) (any, error) {
	return plugin.DecodeProps(raw, ImageProps{Fit: "contain", MaxPixels: defaultMaxPixels})
}

func (Image) Validate(props any) []plugin.FieldError {
	p, err := plugin.As[ImageProps](props)
	if err != nil {
		return []plugin.FieldError{{Field: "src", Message: err.Error()}}
	}
	errs := required("src", p.Src)
	switch p.Fit {
	case "fill", "contain", "cover":
	default:
		errs = append(errs, plugin.FieldError{Field: "fit", Message: fmt.Sprintf("unknown fit %q", p.Fit)})
	}
	if p.MaxPixels < 0 {
		errs = append(errs, plugin.FieldError{Field: "maxPixels", Message: "must not be negative"})
	}
	return errs
}

// embed loads, decodes and embeds the image, memoized per source.
func embed(ctx *plugin.MeasureContext, p ImageProps) (*builder.Image, error) {
	cache := plugin.CacheFor[*builder.Image](ctx.Store, "image")
	return cache.Get(plugin.Key(p.Src, p.MaxPixels), func() (*builder.Image, error) {
		if ctx.Resources == nil {
			return nil, errNoLoader
		}
		data, err := ctx.Resources.Load(ctx.Context(), resources.CategoryImage, p.Src)
		if err != nil {
			return nil, err
		}
		img, format, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		img = downscale(img, p.MaxPixels)
		out, err := ctx.Doc.AddImage(img)
		if err != nil {
			return nil, fmt.Errorf("embed %s image: %w", format, err)
		}
		ctx.Log().Debug("image embedded",
			observability.String("format", format),
			observability.Int("width", out.Width),
			observability.Int("height", out.Height))
		return out, nil
	})
}

// downscale shrinks img so neither side exceeds limit.
func downscale(img image.Image, limit int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if limit <= 0 || (w <= limit && h <= limit) {
		return img
	}
	scale := float64(limit) / float64(max(w, h))
	dst := image.NewNRGBA(image.Rect(0, 0, max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// Measure sizes an image without a declared box from its pixels at 72 dpi,
// keeping the aspect ratio when only one side is given.
func (Image) Measure(ctx *plugin.MeasureContext, props any) (plugin.Size, error) {
	p, err := plugin.As[ImageProps](props)
	if err != nil {
		return plugin.Size{}, err
	}
	img, err := embed(ctx, p)
	if err != nil {
		return plugin.Size{}, err
	}
	iw, ih := float64(img.Width), float64(img.Height)
	w, h := ctx.Width, ctx.Height
	switch {
	case w <= 0 && h <= 0:
		w, h = iw, ih
	case h <= 0:
		h = w * ih / iw
	case w <= 0:
		w = h * iw / ih
	}
	return plugin.Size{Width: w, Height: h}, nil
}

func (Image) Render(ctx *plugin.RenderContext, props any) error {
	p, err := plugin.As[ImageProps](props)
	if err != nil {
		return err
	}
	img, err := embed(&ctx.MeasureContext, p)
	if err != nil {
		return err
	}
	box := ctx.Box
	dst := fitImage(box, float64(img.Width), float64(img.Height), p.Fit, ctx.Style.Align, ctx.Style.VerticalAlign)
	r := ctx.Transform.Rect(dst)
	if p.Fit != "cover" {
		ctx.Page.DrawImage(img, r.X, r.Y, r.W, r.H)
		return nil
	}
	clip := ctx.PDFBox()
	ctx.Page.SaveState()
	ctx.Page.ClipRect(clip.X, clip.Y, clip.W, clip.H)
	ctx.Page.DrawImage(img, r.X, r.Y, r.W, r.H)
	ctx.Page.RestoreState()
	return nil
}

// fitImage places an iw by ih image in box. contain keeps the whole image
// visible, cover fills the box and overflows it, fill stretches.
func fitImage(box coords.Rect, iw, ih float64, fit, align, valign string) coords.Rect {
	if fit == "fill" || iw <= 0 || ih <= 0 {
		return box
	}
	sx, sy := box.W/iw, box.H/ih
	scale := min(sx, sy)
	if fit == "cover" {
		scale = max(sx, sy)
	}
	w, h := iw*scale, ih*scale
	return coords.Rect{
		X: box.X + alignX(align, box.W, w),
		Y: box.Y + centerY(valign, box.H, h),
		W: w,
		H: h,
	}
}

// centerY is alignY without the clamp, so overflowing content can be
// centred too.
func centerY(align string, avail, h float64) float64 {
	switch align {
	case "middle", "center":
		return (avail - h) / 2
	case "bottom":
		return avail - h
	}
	return 0
}
