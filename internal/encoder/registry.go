package encoder

import (
	"fmt"
	"strings"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// Registry holds the encoders keyed by output format.
type Registry struct {
	encoders map[conversion.Format]Encoder
}

// NewRegistry creates a registry with the PNG and JPEG encoders.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[conversion.Format]Encoder),
	}
	for _, enc := range []Encoder{&PNGEncoder{}, &JPEGEncoder{}} {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Get returns the encoder for format, or nil if none is registered.
func (r *Registry) Get(format conversion.Format) Encoder {
	return r.encoders[format]
}

// Available returns all registered formats in priority order.
func (r *Registry) Available() []conversion.Format {
	var result []conversion.Format
	for _, f := range []conversion.Format{conversion.FormatPNG, conversion.FormatJPEG} {
		if _, ok := r.encoders[f]; ok {
			result = append(result, f)
		}
	}
	return result
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	names := make([]string, len(avail))
	for i, f := range avail {
		names[i] = string(f)
	}
	return fmt.Sprintf("encoders: %s", strings.Join(names, ", "))
}
