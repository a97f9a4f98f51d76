package conversion

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Variants(t *testing.T) {
	ok := Succeeded([]byte{1, 2, 3}, "image/png")
	assert.True(t, ok.OK())
	assert.Nil(t, ok.Failure)
	assert.NoError(t, ok.Err())
	assert.Equal(t, "image/png", ok.MIMEType)

	bad := Failed(FetchError, "HTTP 404")
	assert.False(t, bad.OK())
	assert.Empty(t, bad.Encoded)
	require.Error(t, bad.Err())

	var f *Failure
	require.True(t, errors.As(bad.Err(), &f))
	assert.Equal(t, FetchError, f.Kind)
	assert.Equal(t, "FetchError: HTTP 404", f.Error())
}

func TestSucceeded_EmptyDataIsFailure(t *testing.T) {
	r := Succeeded(nil, "image/png")
	require.False(t, r.OK())
	assert.Equal(t, EncodeError, r.Failure.Kind)
}

func TestParseFormat(t *testing.T) {
	assert.Equal(t, FormatJPEG, ParseFormat("jpeg"))
	assert.Equal(t, FormatJPEG, ParseFormat(" JPG "))
	assert.Equal(t, FormatPNG, ParseFormat("webp"))
	assert.Equal(t, FormatPNG, ParseFormat(""))
	assert.Equal(t, "image/jpeg", FormatJPEG.MIMEType())
	assert.Equal(t, "jpg", FormatJPEG.Extension())
	assert.Equal(t, "png", FormatPNG.Extension())
}

func TestRequest_Normalized(t *testing.T) {
	r := Request{URI: "https://example.com/a.png", Format: "JPG", Quality: 75, MaxDimension: -1}
	n := r.Normalized()
	assert.Equal(t, FormatJPEG, n.Format)
	assert.InDelta(t, 0.75, n.Quality, 1e-9)
	assert.Equal(t, 0, n.MaxDimension)
	// original untouched
	assert.Equal(t, Format("JPG"), r.Format)
}
