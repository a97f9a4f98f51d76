package fetcher

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Bitmap is a decoded image. The component that decoded it owns it and
// must Close it after the final draw.
type Bitmap struct {
	Width  int
	Height int
	img    image.Image
}

// NewBitmap wraps an already decoded image.
func NewBitmap(img image.Image) *Bitmap {
	b := img.Bounds()
	return &Bitmap{Width: b.Dx(), Height: b.Dy(), img: img}
}

// Image returns the pixel source, or ErrReleased after Close.
func (b *Bitmap) Image() (image.Image, error) {
	if b == nil || b.img == nil {
		return nil, ErrReleased
	}
	return b.img, nil
}

// Released reports whether Close has been called.
func (b *Bitmap) Released() bool { return b == nil || b.img == nil }

// Close drops the pixel source. It is safe to call more than once.
func (b *Bitmap) Close() {
	if b != nil {
		b.img = nil
	}
}

// Decode decodes data into a Bitmap, applying EXIF orientation the way a
// browser does when it creates an image bitmap.
func Decode(data []byte) (*Bitmap, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bmp := NewBitmap(img)
	if bmp.Width <= 0 || bmp.Height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrDecode)
	}
	return bmp, nil
}
