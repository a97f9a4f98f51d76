// Package dataurl encodes and decodes base64 "data:" URIs, the
// self-contained form in which encoded images cross execution contexts.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalid is returned for strings that are not well-formed data URIs.
var ErrInvalid = errors.New("dataurl: invalid data URL")

// DefaultMediaType is assumed when a data URI carries no media type.
const DefaultMediaType = "text/plain"

// Encode returns data as a base64 data URI with the given media type.
func Encode(mediaType string, data []byte) string {
	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mediaType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mediaType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// IsDataURL reports whether s uses the data: scheme.
func IsDataURL(s string) bool {
	return len(s) >= 5 && strings.EqualFold(s[:5], "data:")
}

// Decode parses a data URI and returns its media type and payload.
// Both base64 and percent-encoded payloads are accepted.
func Decode(s string) (string, []byte, error) {
	if !IsDataURL(s) {
		return "", nil, ErrInvalid
	}
	header, payload, ok := strings.Cut(s[5:], ",")
	if !ok {
		return "", nil, fmt.Errorf("%w: missing comma", ErrInvalid)
	}

	params := strings.Split(header, ";")
	mediaType := strings.TrimSpace(params[0])
	if mediaType == "" {
		mediaType = DefaultMediaType
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(strings.TrimSpace(p), "base64") {
			isBase64 = true
		}
	}

	if !isBase64 {
		raw, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return mediaType, []byte(raw), nil
	}

	payload = strings.TrimRight(strings.TrimSpace(payload), "=")
	data, err := base64.RawStdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return mediaType, data, nil
}
