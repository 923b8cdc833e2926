package match

import (
	"strings"

	"github.com/redirtxt/redirtxt/internal/rule/common"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

// Matcher tests the source of one rule against a request.
type Matcher interface {
	Kind() common.Kind
	// Match reports whether the request matches and, if so, the value the
	// result should report as its source.
	Match(meta *common.Metadata) (from string, ok bool)
}

// PinsQuery reports whether a matched source carries its own query string,
// in which case the request's query is not forwarded to the destination.
func PinsQuery(m Matcher, from string) bool {
	if r, ok := m.(*Regex); ok {
		return r.HasQuery()
	}
	return strings.Contains(from, "?")
}

// New builds the matcher for rule's source. It returns nil when the source
// can never match, e.g. a regex that does not compile.
func New(rule common.Rule, site *urlnorm.Site, patterns *PatternCache) Matcher {
	switch rule.FromKind() {
	case common.KindID:
		return NewID(rule.From)
	case common.KindRegex:
		return NewRegex(rule.From, patterns)
	default:
		return NewURL(rule.From, site)
	}
}
