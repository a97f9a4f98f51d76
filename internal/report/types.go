// Package report records the outcome of CLI conversions as JSON.
package report

// Report is the top-level record written by `saveimg save --report`.
type Report struct {
	Version     int       `json:"version"`
	GeneratedAt string    `json:"generated_at"`
	Preset      string    `json:"preset,omitempty"`
	Entries     []Entry   `json:"entries"`
	Stats       Stats     `json:"stats"`
	Platform    *Platform `json:"platform,omitempty"`
}

// Platform captures which execution contexts were enabled.
type Platform struct {
	Offscreen        bool  `json:"offscreen"`
	PrimaryTimeoutMs int64 `json:"primary_timeout_ms"`
	Browser          bool  `json:"browser"`
}

// Entry describes one conversion and what happened to its result.
type Entry struct {
	Action   string   `json:"action"` // "save" or "copy"
	ImageURL string   `json:"image_url"`
	PageURL  string   `json:"page_url,omitempty"`
	Request  Request  `json:"request"`
	Success  bool     `json:"success"`
	Reason   string   `json:"reason,omitempty"`
	Detail   string   `json:"detail,omitempty"`
	Output   *Output  `json:"output,omitempty"`
	Duration Duration `json:"duration_ms"`
}

// Request mirrors the conversion parameters.
type Request struct {
	Format          string  `json:"format"`
	Quality         float64 `json:"quality"`
	MaxDimension    int     `json:"max_dimension"`
	WithCredentials bool    `json:"with_credentials"`
}

// Output is the encoded image.
type Output struct {
	MIMEType string `json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"`           // xxhash64 hex
	Path     string `json:"path,omitempty"` // relative to the report, saves only
}

// Stats aggregates the entries.
type Stats struct {
	Total       int   `json:"total"`
	Succeeded   int   `json:"succeeded"`
	Failed      int   `json:"failed"`
	OutputBytes int64 `json:"output_bytes"`
}

// Duration is a millisecond count.
type Duration int64

// SupportedVersion is the current schema version.
const SupportedVersion = 1
