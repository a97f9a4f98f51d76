// Package filename turns an image URL, the page it was found on and a
// pattern into the name a saved image is written under.
package filename

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/AnyUserName/saveimg/internal/conversion"
	"github.com/AnyUserName/saveimg/internal/hasher"
)

// DefaultPattern is used when the pattern is blank.
const DefaultPattern = "{siteShort}-{name}-{date}-{time}.{ext}"

// hashLength is the size of the {hash} token.
const hashLength = 8

var (
	// Stripped in order, each at most once.
	hostPrefixes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^www\.`),
		regexp.MustCompile(`(?i)^m\.`),
		regexp.MustCompile(`(?i)^cdn\.`),
		regexp.MustCompile(`(?i)^static\.`),
		regexp.MustCompile(`(?i)^media\.`),
		regexp.MustCompile(`(?i)^img\.`),
		regexp.MustCompile(`(?i)^images?\.`),
	}
	extension    = regexp.MustCompile(`\.[^.]+$`)
	unsafeChars  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
)

// Input carries everything a pattern can refer to.
type Input struct {
	ImageURL string
	PageURL  string
	Format   conversion.Format
	// Data fills {hash}. May be nil when the pattern does not use it.
	Data []byte
	Now  time.Time
}

// Generate renders pattern for in. Tokens: {name} {site} {siteShort}
// {date} {time} {ext} {hash}. The result always ends in the format's
// extension. Unparseable URLs yield image.png or image.jpg.
func Generate(pattern string, in Input) string {
	ext := in.Format.Extension()
	img, err := url.Parse(in.ImageURL)
	if err != nil || (img.Scheme == "" && img.Host == "") {
		return "image." + ext
	}

	base := "image"
	if img.Scheme != "data" {
		name := img.Path[strings.LastIndex(img.Path, "/")+1:]
		if name != "" {
			base = extension.ReplaceAllString(name, "")
		}
	}

	site := siteHost(img, in.PageURL)
	siteShort := BaseDomain(site)
	if siteShort == "" {
		siteShort = site
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	if strings.TrimSpace(pattern) == "" {
		pattern = DefaultPattern
	}
	r := strings.NewReplacer(
		"{name}", orDefault(base, "image"),
		"{site}", orDefault(site, "site"),
		"{siteShort}", orDefault(siteShort, "site"),
		"{date}", now.Format("2006-01-02"),
		"{time}", now.Format("15-04-05"),
		"{ext}", ext,
		"{hash}", hasher.Short(in.Data, hashLength),
	)
	name := sanitize(r.Replace(pattern))
	if !strings.HasSuffix(name, "."+ext) {
		name += "." + ext
	}
	return name
}

// siteHost picks the page host when the image was found on an http(s)
// page, else the image host, with common asset prefixes removed.
func siteHost(img *url.URL, pageURL string) string {
	host := img.Hostname()
	if IsHTTPLike(pageURL) {
		if p, err := url.Parse(pageURL); err == nil && p.Hostname() != "" {
			host = p.Hostname()
		}
	}
	for _, re := range hostPrefixes {
		host = re.ReplaceAllString(host, "")
	}
	if host == "" {
		return "site"
	}
	return host
}

// BaseDomain returns the label left of the public suffix, e.g. "example"
// for "shop.example.com".
func BaseDomain(host string) string {
	parts := strings.FieldsFunc(host, func(r rune) bool { return r == '.' })
	switch len(parts) {
	case 0:
		return ""
	case 1, 2:
		return parts[0]
	default:
		return parts[len(parts)-2]
	}
}

// IsHTTPLike reports whether u is an http or https URL.
func IsHTTPLike(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func sanitize(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	return strings.TrimLeft(strings.TrimSpace(name), ".")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
