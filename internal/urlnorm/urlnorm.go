// Package urlnorm canonicalizes rule values and request URIs into comparable
// strings.
package urlnorm

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	// runs of slashes not preceded by the scheme colon
	absoluteSlashRun = regexp.MustCompile(`([^:])/{2,}`)
	slashRun         = regexp.MustCompile(`/{2,}`)
)

// Site describes where the host application is mounted. A site served from a
// sub-directory (https://example.com/blog) has a non-empty base path.
type Site struct {
	home string
	host string
	base string
}

// NewSite builds a Site from the home URL. An empty or unparsable home URL
// yields a root-hosted site with no host.
func NewSite(home string) *Site {
	home = strings.TrimRight(strings.TrimSpace(home), "/")
	s := &Site{home: home}
	if home == "" {
		return s
	}
	u, err := url.Parse(home)
	if err != nil {
		return s
	}
	s.host = strings.ToLower(u.Hostname())
	s.base = strings.TrimRight(u.EscapedPath(), "/")
	return s
}

// Home returns the home URL without a trailing slash.
func (s *Site) Home() string { return s.home }

// Host returns the lower-cased host name of the site, without port.
func (s *Site) Host() string { return s.host }

// BasePath returns the sub-directory the site is served from, "" at the root.
func (s *Site) BasePath() string { return s.base }

var rootSite = &Site{}

// FormatURL formats raw for a site hosted at the domain root.
func FormatURL(raw string) string {
	return rootSite.FormatURL(raw)
}

// FormatURL turns a rule value or request path into its canonical form.
//
// Absolute URLs (http://, https://, or a bare www. host) keep their case and
// trailing slash and only have repeated slashes collapsed. Anything else is
// treated as relative to the site root: the base path is prepended, slashes
// are collapsed, the result is lower-cased and the trailing slash dropped.
func (s *Site) FormatURL(raw string) string {
	u := strings.TrimSpace(raw)
	u = decodePercent(u)
	u = html.UnescapeString(u)

	if hasPrefixFold(u, "www.") {
		u = "http://" + u
	}

	if IsAbsolute(u) {
		u = absoluteSlashRun.ReplaceAllString(u, "${1}/")
		return strings.TrimSpace(u)
	}

	u = s.base + "/" + u
	u = slashRun.ReplaceAllString(u, "/")
	u = strings.ToLower(u)
	u = strings.TrimRight(u, "/")
	if path, query, ok := strings.Cut(u, "?"); ok {
		// "/old/?a=1" and "/old?a=1" name the same resource
		if path = strings.TrimRight(path, "/"); path == "" {
			path = "/"
		}
		u = path + "?" + query
	}
	if u == "" {
		u = "/"
	}
	return strings.TrimSpace(u)
}

// CanonicalPath decodes, collapses and lower-cases a site-relative path the
// way FormatURL does, without prepending the base path.
func CanonicalPath(path string) string {
	p := decodePercent(strings.TrimSpace(path))
	p = html.UnescapeString(p)
	p = slashRun.ReplaceAllString("/"+p, "/")
	return strings.ToLower(p)
}

// IsAbsolute reports whether u starts with an http or https scheme.
func IsAbsolute(u string) bool {
	return hasPrefixFold(u, "http://") || hasPrefixFold(u, "https://")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// decodePercent decodes like a form value: '+' becomes a space and valid %XX
// escapes are decoded. Malformed escapes are kept verbatim instead of failing.
func decodePercent(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	if d, err := url.QueryUnescape(s); err == nil {
		return d
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
