// Package encoder draws bitmaps onto a pixel surface and serializes them
// as PNG or JPEG.
package encoder

import (
	"errors"
	"image"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// ErrEncode indicates a surface that could not be serialized.
var ErrEncode = errors.New("encode failed")

// Encoder encodes an image to a specific format.
type Encoder interface {
	// Format returns the output format.
	Format() conversion.Format

	// MIMEType returns the media type of the encoded bytes.
	MIMEType() string

	// Encode converts the image to bytes. quality is a fraction in
	// [0.5, 1.0]; lossless encoders ignore it.
	Encode(img image.Image, quality float64) ([]byte, error)
}
