// Package fetcher retrieves image bytes under a credential policy and
// decodes them into bitmaps.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AnyUserName/saveimg/internal/dataurl"
)

// DefaultMaxBytes caps the size of a fetched image.
const DefaultMaxBytes = 64 << 20

// Config holds fetcher parameters.
type Config struct {
	// Timeout bounds a single HTTP exchange. Zero means no client timeout.
	Timeout time.Duration
	// MaxBytes caps the response body. Zero uses DefaultMaxBytes.
	MaxBytes int64
	// UserAgent is sent with every request when set.
	UserAgent string
	// Jar supplies cookies for credentialed fetches.
	Jar http.CookieJar
	// CredentialHeaders are added only to credentialed fetches,
	// e.g. Authorization.
	CredentialHeaders map[string]string
	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper
}

// Fetcher downloads images. It is safe for concurrent use.
type Fetcher struct {
	cfg       Config
	anonymous *http.Client
	withCreds *http.Client
}

// New returns a Fetcher for cfg.
func New(cfg Config) *Fetcher {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		cfg:       cfg,
		anonymous: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		withCreds: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport, Jar: cfg.Jar},
	}
}

// FetchBytes retrieves the raw bytes at uri and returns them with their
// media type. data: URIs are decoded without touching the network.
func (f *Fetcher) FetchBytes(ctx context.Context, uri string, withCredentials bool) ([]byte, string, error) {
	if dataurl.IsDataURL(uri) {
		mt, data, err := dataurl.Decode(uri)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
		}
		return data, mt, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", fmt.Errorf("%w: invalid URL %q: %v", ErrFetch, uri, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrFetch, u.Scheme)
	}

	client := f.anonymous
	if withCredentials {
		client = f.withCreds
	} else {
		u.User = nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "image/avif,image/webp,image/png,image/jpeg,image/*;q=0.8,*/*;q=0.5")
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if withCredentials {
		for k, v := range f.cfg.CredentialHeaders {
			req.Header.Set(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("%w: HTTP %d", ErrFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading body: %v", ErrFetch, err)
	}
	if int64(len(data)) > f.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: body exceeds %d bytes", ErrFetch, f.cfg.MaxBytes)
	}

	return data, mediaType(resp.Header.Get("Content-Type"), data), nil
}

// Fetch retrieves and decodes the image at uri.
func (f *Fetcher) Fetch(ctx context.Context, uri string, withCredentials bool) (*Bitmap, error) {
	data, _, err := f.FetchBytes(ctx, uri, withCredentials)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// mediaType prefers a declared image/* type and falls back to sniffing.
func mediaType(header string, data []byte) string {
	if header != "" {
		if mt, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mt, "image/") {
			return mt
		}
	}
	if mt := sniff(data); mt != "" {
		return mt
	}
	return http.DetectContentType(data)
}
