package encoder

import (
	"bytes"
	"image"
	"image/png"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// PNGEncoder encodes images to PNG using Go's standard library.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() conversion.Format { return conversion.FormatPNG }
func (e *PNGEncoder) MIMEType() string          { return "image/png" }

// Encode ignores quality: PNG output is always lossless.
func (e *PNGEncoder) Encode(img image.Image, _ float64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(512 * 1024)

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
