package urlnorm

import "strings"

// Request is an incoming request URI split into the forms the matcher needs.
type Request struct {
	// Raw is the site-relative URI in its original case, including the query
	// string, without a trailing slash on the path.
	Raw string
	// Path is Raw without the query string.
	Path string
	// Query is the original query string without the leading '?'.
	Query string
	// Key is the canonical form of Raw, used for rules that carry a query.
	Key string
	// PathKey is the canonical form of Path.
	PathKey string
}

// NormalizeRequest prepares a request URI for matching. uri may be a path
// ("/a/b?c=d") or a full URL; scheme and host are dropped either way, as is
// the site's own base path.
func (s *Site) NormalizeRequest(uri string) Request {
	uri = strings.TrimSpace(uri)
	uri = stripSchemeHost(uri)
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		uri = uri[:i]
	}

	path, query, _ := strings.Cut(uri, "?")
	path = s.stripBasePath(path)
	path = strings.TrimRight(path, "/")
	if path == "" {
		path = "/"
	} else if path[0] != '/' {
		path = "/" + path
	}

	raw := path
	if query != "" {
		raw += "?" + query
	}

	return Request{
		Raw:     raw,
		Path:    path,
		Query:   query,
		Key:     s.FormatURL(raw),
		PathKey: s.FormatURL(path),
	}
}

func (s *Site) stripBasePath(path string) string {
	if s.base == "" || len(path) < len(s.base) {
		return path
	}
	if !strings.EqualFold(path[:len(s.base)], s.base) {
		return path
	}
	rest := path[len(s.base):]
	if rest != "" && rest[0] != '/' {
		// "/blogroll" is not under "/blog"
		return path
	}
	return rest
}

func stripSchemeHost(uri string) string {
	if !IsAbsolute(uri) {
		return uri
	}
	rest := uri[strings.Index(uri, "://")+3:]
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		return rest[i:]
	}
	return "/"
}
