package delivery

import (
	"strings"

	"github.com/AnyUserName/saveimg/internal/conversion"
)

// User-visible notification texts.
const (
	MsgSaved         = "Saved."
	MsgSaveCancelled = "Save cancelled"
	MsgSaveFailed    = "Save failed"
	MsgCopyFailed    = "Copy failed"
)

// MsgCopied returns the copy success text for format.
func MsgCopied(format conversion.Format) string {
	return format.Label() + " copied"
}

// FailureMessage combines a failure category with its detail. The detail
// is appended only when it says something the category does not.
func FailureMessage(category, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return category
	}
	lc, ld := strings.ToLower(category), strings.ToLower(detail)
	switch {
	case lc == ld, strings.Contains(lc, ld):
		return category
	case strings.HasPrefix(ld, lc):
		return detail
	}
	return category + ": " + detail
}
