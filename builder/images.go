package builder

import (
	"bytes"
	"compress/zlib"
	"image"
	"image/draw"

	"github.com/wudi/reportkit/ir/raw"
)

// Image is an image XObject registered with a document.
type Image struct {
	Name   string
	Ref    raw.ObjectRef
	Width  int
	Height int
}

// AddImage embeds src as a Flate-compressed DeviceRGB XObject. Transparent
// pixels produce a DeviceGray soft mask.
func (d *Document) AddImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Convert to NRGBA (non-premultiplied alpha) to get raw color values
	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		offset := i * 4
		pixels = append(pixels, nrgba.Pix[offset], nrgba.Pix[offset+1], nrgba.Pix[offset+2])
		a := nrgba.Pix[offset+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}

	dict := imageDict(w, h, "DeviceRGB")
	if hasAlpha {
		maskData, err := deflate(alpha)
		if err != nil {
			return nil, err
		}
		maskRef := d.reg.Add(raw.NewStream(imageDict(w, h, "DeviceGray"), maskData))
		dict.Set("SMask", raw.Ref(maskRef))
	}
	data, err := deflate(pixels)
	if err != nil {
		return nil, err
	}
	ref := d.reg.Add(raw.NewStream(dict, data))
	return &Image{Name: d.NextResourceName("Im"), Ref: ref, Width: w, Height: h}, nil
}

func imageDict(w, h int, colorSpace string) *raw.DictObj {
	return raw.DictOf(
		"Type", raw.Name("XObject"),
		"Subtype", raw.Name("Image"),
		"Width", raw.Int(int64(w)),
		"Height", raw.Int(int64(h)),
		"ColorSpace", raw.Name(colorSpace),
		"BitsPerComponent", raw.Int(8),
		"Filter", raw.Name("FlateDecode"),
	)
}

// deflate compresses data with zlib at the default level.
func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deflate is the stream compressor shared with the writer.
func Deflate(data []byte) ([]byte, error) { return deflate(data) }
