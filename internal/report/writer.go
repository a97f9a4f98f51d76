package report

import (
	"bytes"
	"encoding/json"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/hasher"
)

// New creates an empty report.
func New(preset string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Preset:      preset,
		Entries:     []Entry{},
	}
}

// Add records the conversion of req and its result.
func (r *Report) Add(action, pageURL string, req conversion.Request, res conversion.Result, took time.Duration) *Entry {
	e := Entry{
		Action:   action,
		ImageURL: req.URI,
		PageURL:  pageURL,
		Request: Request{
			Format:          string(req.Format),
			Quality:         req.Quality,
			MaxDimension:    req.MaxDimension,
			WithCredentials: req.WithCredentials,
		},
		Success:  res.OK(),
		Duration: Duration(took.Milliseconds()),
	}
	if res.OK() {
		e.Output = describe(res)
	} else {
		e.Reason = string(res.Failure.Kind)
		e.Detail = res.Failure.Detail
	}
	r.Entries = append(r.Entries, e)
	return &r.Entries[len(r.Entries)-1]
}

func describe(res conversion.Result) *Output {
	out := &Output{
		MIMEType: res.MIMEType,
		Size:     int64(len(res.Encoded)),
		Hash:     hasher.Sum(res.Encoded),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(res.Encoded)); err == nil {
		out.Width, out.Height = cfg.Width, cfg.Height
	}
	return out
}

// ComputeStats recalculates aggregate statistics from entries.
func (r *Report) ComputeStats() {
	var s Stats
	s.Total = len(r.Entries)
	for _, e := range r.Entries {
		if e.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if e.Output != nil {
			s.OutputBytes += e.Output.Size
		}
	}
	r.Stats = s
}

// WriteJSON serializes the report to path.
func WriteJSON(r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadJSON loads a report written by WriteJSON.
func ReadJSON(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
