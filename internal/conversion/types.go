// Package conversion holds the values exchanged between the coordinator,
// the auxiliary document and page tabs: requests, results and the policies
// every execution context applies identically (resize and quality).
package conversion

import (
	"fmt"
	"strings"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat maps a user supplied format name to a Format.
// Anything that is not JPEG is treated as PNG.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jpeg", "jpg":
		return FormatJPEG
	default:
		return FormatPNG
	}
}

// MIMEType returns the media type produced by the encoder for f.
func (f Format) MIMEType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Extension returns the file extension without dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return "png"
}

// Label is the upper-case name shown in menus and toasts.
func (f Format) Label() string {
	if f == FormatJPEG {
		return "JPEG"
	}
	return "PNG"
}

// ExecutionContext names an environment that can run conversion logic.
type ExecutionContext string

const (
	// ContextPrimaryAuxiliary is the on-demand auxiliary document.
	ContextPrimaryAuxiliary ExecutionContext = "primary-auxiliary"
	// ContextPageInjected is code executed inside a browser tab.
	ContextPageInjected ExecutionContext = "page-injected"
	// ContextCoordinator is the long-lived background process.
	ContextCoordinator ExecutionContext = "coordinator"
)

// TabID identifies a browser tab. Valid ids are positive.
type TabID int

func (id TabID) String() string { return fmt.Sprintf("tab-%d", int(id)) }

// Request describes one conversion. It is passed by value and never mutated.
type Request struct {
	URI             string  `json:"uri"`
	WithCredentials bool    `json:"withCredentials"`
	Format          Format  `json:"format"`
	Quality         float64 `json:"quality"`
	MaxDimension    int     `json:"maxDimension"`
}

// Normalized returns a copy of r with quality and max dimension clamped
// and the format mapped onto a supported encoding.
func (r Request) Normalized() Request {
	r.Format = ParseFormat(string(r.Format))
	r.Quality = NormalizeQuality(r.Quality)
	r.MaxDimension = ClampDimension(r.MaxDimension)
	return r
}
