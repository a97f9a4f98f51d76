package encoder

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// JPEGEncoder encodes images to JPEG using Go's standard library.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() conversion.Format { return conversion.FormatJPEG }
func (e *JPEGEncoder) MIMEType() string          { return "image/jpeg" }

func (e *JPEGEncoder) Encode(img image.Image, quality float64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(256 * 1024) // typical photo size, avoids repeated grow

	err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: conversion.EncoderQuality(quality)})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
