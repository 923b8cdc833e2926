package urlnorm

import (
	"net/url"
	"strings"
)

// Sanitize prepares a destination for a Location header: control characters
// are dropped, spaces escaped, and URLs with a scheme other than http or
// https are rejected as "".
func Sanitize(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(u))
	for _, r := range u {
		switch {
		case r == ' ':
			b.WriteString("%20")
		case r < 0x20 || r == 0x7f:
		default:
			b.WriteRune(r)
		}
	}
	u = b.String()

	if scheme, ok := schemeOf(u); ok {
		scheme = strings.ToLower(scheme)
		if scheme != "http" && scheme != "https" {
			return ""
		}
	}
	return u
}

// HostOf returns the lower-cased host of an absolute or protocol-relative URL,
// "" for paths.
func HostOf(u string) string {
	if !IsAbsolute(u) && !strings.HasPrefix(u, "//") {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

func schemeOf(u string) (string, bool) {
	end := strings.IndexAny(u, ":/?#")
	if end <= 0 || u[end] != ':' {
		return "", false
	}
	for i := 0; i < end; i++ {
		c := u[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return "", false
		}
	}
	return u[:end], true
}
