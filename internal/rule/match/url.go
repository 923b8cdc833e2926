package match

import (
	"log/slog"
	"strings"

	"github.com/redirtxt/redirtxt/internal/rule/common"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

type URL struct {
	raw      string
	from     string
	hasQuery bool
}

func (u *URL) Kind() common.Kind {
	return common.KindURL
}

// Match compares canonical forms. A source without a query string ignores
// the query of the request.
func (u *URL) Match(meta *common.Metadata) (string, bool) {
	key := meta.Request.PathKey
	if u.hasQuery {
		key = meta.Request.Key
	}
	return u.from, key == u.from
}

func (u *URL) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(u.Kind())),
		slog.String("rule", u.raw),
		slog.String("from", u.from),
	)
}

func NewURL(raw string, site *urlnorm.Site) *URL {
	from := site.FormatURL(raw)
	return &URL{
		raw:      raw,
		from:     from,
		hasQuery: strings.Contains(from, "?"),
	}
}
