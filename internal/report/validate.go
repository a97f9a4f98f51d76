package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/saveimg/internal/hasher"
)

// Validate checks r for internal consistency and, for saved entries, that
// the files next to baseDir still match the recorded size and hash.
func Validate(r *Report, baseDir string) []string {
	var errs []string

	if r.Version != SupportedVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}

	seenPaths := map[string]bool{}
	for i, e := range r.Entries {
		if e.Action != "save" && e.Action != "copy" {
			errs = append(errs, fmt.Sprintf("entry[%d]: unknown action %q", i, e.Action))
		}
		if e.ImageURL == "" {
			errs = append(errs, fmt.Sprintf("entry[%d]: missing image_url", i))
		}
		if !e.Success {
			if e.Reason == "" {
				errs = append(errs, fmt.Sprintf("entry[%d]: failure without reason", i))
			}
			continue
		}
		if e.Output == nil {
			errs = append(errs, fmt.Sprintf("entry[%d]: success without output", i))
			continue
		}

		o := e.Output
		if o.Width <= 0 || o.Height <= 0 {
			errs = append(errs, fmt.Sprintf("entry[%d]: invalid dimensions %dx%d", i, o.Width, o.Height))
		}
		if bound := e.Request.MaxDimension; bound > 0 && (o.Width > bound || o.Height > bound) {
			errs = append(errs, fmt.Sprintf("entry[%d]: %dx%d exceeds max dimension %d", i, o.Width, o.Height, bound))
		}
		if o.Hash == "" {
			errs = append(errs, fmt.Sprintf("entry[%d]: missing hash", i))
		}
		if e.Action != "save" || o.Path == "" {
			continue
		}

		if seenPaths[o.Path] {
			errs = append(errs, fmt.Sprintf("entry[%d]: duplicate path %q", i, o.Path))
		}
		seenPaths[o.Path] = true

		full := o.Path
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, full)
		}
		info, err := os.Stat(full)
		if err != nil {
			errs = append(errs, fmt.Sprintf("entry[%d]: file not found: %s", i, o.Path))
			continue
		}
		if info.Size() != o.Size {
			errs = append(errs, fmt.Sprintf("entry[%d]: size mismatch: report=%d, disk=%d", i, o.Size, info.Size()))
		}
		if sum, err := hasher.SumFile(full); err == nil && sum != o.Hash {
			errs = append(errs, fmt.Sprintf("entry[%d]: hash mismatch for %s", i, o.Path))
		}
	}

	var s Stats
	for _, e := range r.Entries {
		if e.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	if r.Stats.Total != len(r.Entries) {
		errs = append(errs, fmt.Sprintf("stats.total mismatch: %d != %d", r.Stats.Total, len(r.Entries)))
	}
	if r.Stats.Succeeded != s.Succeeded || r.Stats.Failed != s.Failed {
		errs = append(errs, fmt.Sprintf("stats mismatch: succeeded %d/%d, failed %d/%d",
			r.Stats.Succeeded, s.Succeeded, r.Stats.Failed, s.Failed))
	}

	return errs
}
