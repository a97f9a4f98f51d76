package conversion

import "math"

const (
	// MinQuality and MaxQuality bound the JPEG quality fraction.
	MinQuality = 0.5
	MaxQuality = 1.0

	// MaxDimensionLimit is the largest accepted resize bound.
	MaxDimensionLimit = 8000
)

// NormalizeQuality interprets values above 1 as percentages and clamps the
// result to [MinQuality, MaxQuality]. NaN maps to MinQuality.
func NormalizeQuality(q float64) float64 {
	if math.IsNaN(q) {
		return MinQuality
	}
	if q > 1 {
		q /= 100
	}
	return math.Min(math.Max(q, MinQuality), MaxQuality)
}

// ClampDimension bounds a max-dimension setting to [0, MaxDimensionLimit].
func ClampDimension(n int) int {
	if n < 0 {
		return 0
	}
	if n > MaxDimensionLimit {
		return MaxDimensionLimit
	}
	return n
}

// TargetSize applies the resize policy: when maxDim > 0 and either side
// exceeds it, both sides are scaled by min(maxDim/w, maxDim/h) and rounded
// to the nearest integer. Otherwise the size passes through unchanged.
func TargetSize(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || w <= 0 || h <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	scale := math.Min(float64(maxDim)/float64(w), float64(maxDim)/float64(h))
	tw := int(math.Round(float64(w) * scale))
	th := int(math.Round(float64(h) * scale))
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	return tw, th
}

// EncoderQuality converts a quality fraction to the 1-100 scale used by
// image/jpeg.
func EncoderQuality(q float64) int {
	return int(math.Round(NormalizeQuality(q) * 100))
}
