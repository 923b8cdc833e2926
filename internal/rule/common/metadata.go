package common

import "github.com/redirtxt/redirtxt/internal/urlnorm"

// Metadata carries everything a matcher may look at for one request.
type Metadata struct {
	Request urlnorm.Request
	Site    *urlnorm.Site

	// ResourceID is the id of the content the request resolved to, 0 when
	// the request does not resolve to any content.
	ResourceID int
	Resolver   Resolver
}

// Resolver maps content ids to their canonical URLs.
type Resolver interface {
	Permalink(id int) (string, bool)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(id int) (string, bool)

func (f ResolverFunc) Permalink(id int) (string, bool) {
	return f(id)
}

// Permalink resolves id through the metadata's resolver, if any.
func (m *Metadata) Permalink(id int) (string, bool) {
	if m.Resolver == nil {
		return "", false
	}
	return m.Resolver.Permalink(id)
}
