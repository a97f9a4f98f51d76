package browser

import "time"

// config holds internal configuration for a Browser.
type config struct {
	chromePath   string
	autoDownload bool
	noSandbox    bool
	headless     bool
	timeout      time.Duration
	userAgent    string
}

func defaultConfig() config {
	return config{
		headless: true,
		timeout:  30 * time.Second,
	}
}

// Option configures a Browser.
type Option func(*config)

// WithChromePath sets the Chrome or Chromium executable.
// By default chromedp searches standard locations.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithAutoDownload downloads a compatible Chromium when no executable
// path is set.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithNoSandbox disables the Chrome sandbox, required when running as
// root inside containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithHeadless toggles headless mode. Defaults to true.
func WithHeadless(headless bool) Option {
	return func(c *config) {
		c.headless = headless
	}
}

// WithTimeout bounds a single in-tab operation. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithUserAgent overrides the browser's user agent.
func WithUserAgent(ua string) Option {
	return func(c *config) {
		c.userAgent = ua
	}
}
