// Package hasher fingerprints encoded images with xxHash64. Fingerprints
// fill the {hash} filename token and are recorded in conversion reports.
package hasher

import (
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// DefaultLength is the number of hex characters in a full fingerprint.
const DefaultLength = 16

// Sum returns the full hex fingerprint of data.
func Sum(data []byte) string {
	return format(xxhash.Sum64(data), DefaultLength)
}

// Short returns the first n hex characters of the fingerprint of data.
// n outside (0, DefaultLength) yields the full fingerprint.
func Short(data []byte, n int) string {
	return format(xxhash.Sum64(data), n)
}

// SumFile streams the file at path through the hash.
func SumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return format(h.Sum64(), DefaultLength), nil
}

func format(v uint64, n int) string {
	full := fmt.Sprintf("%016x", v)
	if n > 0 && n < len(full) {
		return full[:n]
	}
	return full
}
