package encoder

import (
	"fmt"
	"image"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/fetcher"
	"github.com/disintegration/imaging"
)

// Canvas draws bitmaps onto a fresh surface and serializes the surface.
type Canvas struct {
	registry *Registry
}

// NewCanvas returns a Canvas backed by registry. A nil registry uses
// NewRegistry.
func NewCanvas(registry *Registry) *Canvas {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Canvas{registry: registry}
}

// Encode draws bmp onto a w×h surface and serializes it as format. The
// bitmap is released once drawn, including when drawing or encoding fails.
func (c *Canvas) Encode(bmp *fetcher.Bitmap, w, h int, format conversion.Format, quality float64) ([]byte, error) {
	defer bmp.Close()

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: invalid surface size %dx%d", ErrEncode, w, h)
	}
	enc := c.registry.Get(format)
	if enc == nil {
		return nil, fmt.Errorf("%w: no encoder for %q", ErrEncode, format)
	}

	src, err := bmp.Image()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	surface := draw(src, w, h)
	bmp.Close()

	data, err := enc.Encode(surface, quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, format, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s encoder produced no data", ErrEncode, format)
	}
	return data, nil
}

// EncodeScaled applies the resize policy to bmp before encoding it.
func (c *Canvas) EncodeScaled(bmp *fetcher.Bitmap, maxDim int, format conversion.Format, quality float64) ([]byte, error) {
	w, h := conversion.TargetSize(bmp.Width, bmp.Height, maxDim)
	return c.Encode(bmp, w, h, format, quality)
}

// draw returns src rendered on a surface of exactly w×h pixels with its
// origin at (0,0).
func draw(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	if b.Dx() == w && b.Dy() == h {
		return imaging.Clone(src)
	}
	return imaging.Resize(src, w, h, imaging.Lanczos)
}
