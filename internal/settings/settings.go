// Package settings holds the user's conversion preferences: output format,
// quality, resize bound, credential policy, toast behaviour and filename
// pattern. Values are always normalized before use.
package settings

import (
	"math"
	"strings"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/messaging"
)

// DefaultFilenamePattern names saved files when no pattern is set.
const DefaultFilenamePattern = "{siteShort}-{name}-{date}-{time}.{ext}"

// Settings are the user preferences.
type Settings struct {
	ToastEnabled         bool              `yaml:"toastEnabled" json:"toastEnabled"`
	ToastDurationMs      int               `yaml:"toastDurationMs" json:"toastDurationMs"`
	FocusWaitMs          int               `yaml:"focusWaitMs" json:"focusWaitMs"`
	SaveAsPrompt         bool              `yaml:"saveAsPrompt" json:"saveAsPrompt"`
	FetchWithCredentials bool              `yaml:"fetchWithCredentials" json:"fetchWithCredentials"`
	OutputFormat         conversion.Format `yaml:"outputFormat" json:"outputFormat"`
	JPEGQuality          float64           `yaml:"jpegQuality" json:"jpegQuality"`
	ResizeMax            int               `yaml:"resizeMax" json:"resizeMax"`
	FilenamePattern      string            `yaml:"filenamePattern" json:"filenamePattern"`
}

// Defaults returns the settings used before the user changes anything.
func Defaults() Settings {
	return Settings{
		ToastEnabled:         true,
		ToastDurationMs:      2000,
		FocusWaitMs:          50,
		SaveAsPrompt:         true,
		FetchWithCredentials: true,
		OutputFormat:         conversion.FormatPNG,
		JPEGQuality:          0.9,
		ResizeMax:            0,
		FilenamePattern:      DefaultFilenamePattern,
	}
}

// Normalize clamps every value into its accepted range.
func (s Settings) Normalize() Settings {
	s.JPEGQuality = conversion.NormalizeQuality(s.JPEGQuality)
	s.OutputFormat = conversion.ParseFormat(string(s.OutputFormat))
	s.ResizeMax = conversion.ClampDimension(s.ResizeMax)

	opts := s.ToastOptions()
	s.ToastDurationMs = opts.DurationMs
	s.FocusWaitMs = opts.FocusWaitMs

	if strings.TrimSpace(s.FilenamePattern) == "" {
		s.FilenamePattern = DefaultFilenamePattern
	}
	return s
}

// Request builds the conversion request for uri.
func (s Settings) Request(uri string) conversion.Request {
	return conversion.Request{
		URI:             uri,
		WithCredentials: s.FetchWithCredentials,
		Format:          s.OutputFormat,
		Quality:         s.JPEGQuality,
		MaxDimension:    s.ResizeMax,
	}.Normalized()
}

// ToastOptions returns the normalized options forwarded to pages.
func (s Settings) ToastOptions() messaging.ToastOptions {
	return messaging.ToastOptions{
		Enabled:     s.ToastEnabled,
		DurationMs:  s.ToastDurationMs,
		FocusWaitMs: s.FocusWaitMs,
	}.Normalized()
}

// Equal reports whether s and o normalize to the same settings.
func (s Settings) Equal(o Settings) bool {
	a, b := s.Normalize(), o.Normalize()
	if math.Abs(a.JPEGQuality-b.JPEGQuality) > 1e-9 {
		return false
	}
	a.JPEGQuality, b.JPEGQuality = 0, 0
	return a == b
}
