package conversion

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetSize_NoResize(t *testing.T) {
	for _, dims := range [][2]int{{1, 1}, {640, 480}, {4000, 2000}, {3, 9000}} {
		w, h := TargetSize(dims[0], dims[1], 0)
		assert.Equal(t, dims[0], w)
		assert.Equal(t, dims[1], h)
	}
}

func TestTargetSize_WithinBound(t *testing.T) {
	w, h := TargetSize(800, 600, 1000)
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)
}

func TestTargetSize_Downscale(t *testing.T) {
	w, h := TargetSize(4000, 2000, 100)
	assert.Equal(t, 100, w)
	assert.Equal(t, 50, h)

	w, h = TargetSize(2000, 4000, 100)
	assert.Equal(t, 50, w)
	assert.Equal(t, 100, h)
}

func TestTargetSize_LongEdgeAndAspect(t *testing.T) {
	sizes := [][2]int{{1920, 1080}, {1001, 999}, {333, 7777}, {5000, 17}, {1234, 1234}}
	for _, max := range []int{1, 7, 100, 512, 999} {
		for _, s := range sizes {
			if s[0] <= max && s[1] <= max {
				continue
			}
			w, h := TargetSize(s[0], s[1], max)
			long := w
			if h > long {
				long = h
			}
			assert.InDelta(t, max, long, 1, "long edge for %v max=%d", s, max)
			assert.LessOrEqual(t, long, max)

			in := float64(s[0]) / float64(s[1])
			out := float64(w) / float64(h)
			// One pixel of rounding on the short edge bounds the ratio error.
			short := math.Min(float64(w), float64(h))
			tol := in * (1/short + 1/float64(long))
			if w == 1 || h == 1 {
				continue
			}
			assert.InDelta(t, in, out, tol+1e-9, "aspect for %v max=%d", s, max)
		}
	}
}

func TestNormalizeQuality(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{0.9, 0.9},
		{90, 0.9},
		{100, 1.0},
		{0.1, 0.5},
		{30, 0.5},
		{1.0, 1.0},
		{-2, 0.5},
		{250, 1.0},
		{math.NaN(), 0.5},
	}
	for _, c := range cases {
		assert.InDelta(t, c.want, NormalizeQuality(c.in), 1e-9, "quality %v", c.in)
	}
}

func TestEncoderQuality(t *testing.T) {
	assert.Equal(t, 90, EncoderQuality(0.9))
	assert.Equal(t, 50, EncoderQuality(0.2))
	assert.Equal(t, 85, EncoderQuality(85))
}

func TestClampDimension(t *testing.T) {
	assert.Equal(t, 0, ClampDimension(-5))
	assert.Equal(t, 1200, ClampDimension(1200))
	assert.Equal(t, MaxDimensionLimit, ClampDimension(1<<20))
}
