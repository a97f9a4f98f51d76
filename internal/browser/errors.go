package browser

import "errors"

var (
	// ErrClosed is returned when attempting to use a closed Browser.
	ErrClosed = errors.New("browser: closed")

	// ErrNoTab is returned for an unknown tab id.
	ErrNoTab = errors.New("browser: no such tab")
)
