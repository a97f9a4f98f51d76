package settings

import (
	"slices"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// Built-in presets.
var presets = map[string]func(Settings) Settings{
	"default": func(s Settings) Settings { return s },
	"jpeg": func(s Settings) Settings {
		s.OutputFormat = conversion.FormatJPEG
		s.JPEGQuality = 0.9
		return s
	},
	"web": func(s Settings) Settings {
		s.OutputFormat = conversion.FormatJPEG
		s.JPEGQuality = 0.82
		s.ResizeMax = 1280
		return s
	},
	"thumbnail": func(s Settings) Settings {
		s.OutputFormat = conversion.FormatJPEG
		s.JPEGQuality = 0.78
		s.ResizeMax = 320
		return s
	},
	"lossless": func(s Settings) Settings {
		s.OutputFormat = conversion.FormatPNG
		s.ResizeMax = 0
		return s
	},
}

// Preset returns the defaults adjusted by the named preset. Unknown names
// fall back to the defaults.
func Preset(name string) Settings {
	s := Defaults()
	if p, ok := presets[name]; ok {
		s = p(s)
	}
	return s.Normalize()
}

// PresetNames lists the built-in presets.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
