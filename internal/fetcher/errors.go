package fetcher

import (
	"errors"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

var (
	// ErrFetch indicates a network failure or a non-2xx response.
	ErrFetch = errors.New("fetch failed")

	// ErrDecode indicates bytes that could not be decoded as an image.
	ErrDecode = errors.New("decode failed")

	// ErrReleased is returned when a released Bitmap is used again.
	ErrReleased = errors.New("bitmap already released")
)

// Kind maps an error returned by this package to a conversion error kind.
func Kind(err error) conversion.ErrorKind {
	switch {
	case errors.Is(err, ErrFetch):
		return conversion.FetchError
	case errors.Is(err, ErrDecode), errors.Is(err, ErrReleased):
		return conversion.DecodeError
	default:
		return conversion.FetchError
	}
}
