package rule

import (
	"log/slog"
	"strings"

	"github.com/redirtxt/redirtxt/internal/rule/common"
	"github.com/redirtxt/redirtxt/internal/rule/match"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

type EngineOptions struct {
	Site          *urlnorm.Site
	Codes         *StatusCodes
	DefaultStatus int
	Patterns      *match.PatternCache

	// FilterTo may rewrite every resolved destination before it is
	// sanitized.
	FilterTo func(to string) string
}

// Engine matches requests against rule sets. It holds only read-only
// configuration and is safe for concurrent use.
type Engine struct {
	site          *urlnorm.Site
	codes         *StatusCodes
	defaultStatus int
	patterns      *match.PatternCache
	filterTo      func(string) string
}

func NewEngine(opts EngineOptions) *Engine {
	e := &Engine{
		site:          opts.Site,
		codes:         opts.Codes,
		defaultStatus: opts.DefaultStatus,
		patterns:      opts.Patterns,
		filterTo:      opts.FilterTo,
	}
	if e.site == nil {
		e.site = urlnorm.NewSite("")
	}
	if e.codes == nil {
		e.codes = DefaultStatusCodes()
	}
	if e.defaultStatus == 0 {
		e.defaultStatus = common.DefaultStatus
	}
	return e
}

func (e *Engine) Site() *urlnorm.Site {
	return e.site
}

func (e *Engine) Codes() *StatusCodes {
	return e.codes
}

func (e *Engine) DefaultStatus() int {
	return e.defaultStatus
}

// ParseOptions returns parse options carrying the engine's status settings.
func (e *Engine) ParseOptions(allowURLOnly, allowIDFrom bool) ParseOptions {
	return ParseOptions{
		AllowURLOnly:  allowURLOnly,
		AllowIDFrom:   allowIDFrom,
		DefaultStatus: e.defaultStatus,
		Codes:         e.codes,
	}
}

// NewMetadata normalizes uri for matching.
func (e *Engine) NewMetadata(uri string, resourceID int, resolver common.Resolver) *common.Metadata {
	return &common.Metadata{
		Request:    e.site.NormalizeRequest(uri),
		Site:       e.site,
		ResourceID: resourceID,
		Resolver:   resolver,
	}
}

// MatchURLToRules parses text and matches uri against it. currentID is the
// content id the request resolved to, 0 for none.
func (e *Engine) MatchURLToRules(uri, text string, allowURLOnly, allowIDFrom bool, currentID int, resolver common.Resolver) *common.Result {
	rules := Parse(text, e.ParseOptions(allowURLOnly, allowIDFrom))
	if len(rules) == 0 {
		return nil
	}
	return e.Match(e.NewMetadata(uri, currentID, resolver), rules)
}

// Match returns the result for the first rule, in order, that matches meta.
// It returns nil when no rule matches.
func (e *Engine) Match(meta *common.Metadata, rules []common.Rule) *common.Result {
	for _, r := range rules {
		if res := e.matchRule(meta, r); res != nil {
			slog.Debug("Rule matched", slog.Any("rule", r), slog.Any("result", res))
			return res
		}
	}
	return nil
}

func (e *Engine) matchRule(meta *common.Metadata, r common.Rule) *common.Result {
	toKind := r.ToKind()
	to := r.To
	if toKind == common.KindURL {
		to = e.site.FormatURL(to)
	}
	// an empty destination only makes sense for a terminal status
	if strings.TrimSpace(to) == "" && !common.IsTerminal(r.Status) {
		return nil
	}

	m := match.New(r, e.site, e.patterns)
	if m == nil {
		return nil
	}
	from, ok := m.Match(meta)
	if !ok {
		return nil
	}

	switch toKind {
	case common.KindID:
		id, _ := common.ID(r.To)
		link, found := meta.Permalink(id)
		if !found {
			slog.Debug("Unknown destination id", slog.Int("id", id))
		}
		to = link
	case common.KindRegex:
		re, ok := m.(*match.Regex)
		if !ok {
			return nil
		}
		replaced, err := re.Replace(meta.Request.Raw, r.To)
		if err != nil {
			slog.Warn("regexp2.Replace", slog.String("pattern", r.From), slog.Any("error", err))
			return nil
		}
		to = e.site.FormatURL(replaced)
	}

	if to != "" && !match.PinsQuery(m, from) && meta.Request.Query != "" && !strings.Contains(to, "?") {
		to += "?" + meta.Request.Query
	}
	if e.filterTo != nil {
		to = e.filterTo(to)
	}
	to = urlnorm.Sanitize(to)

	if to == "" && !common.IsTerminal(r.Status) {
		return nil
	}

	res := &common.Result{
		From:     from,
		FromType: m.Kind(),
		FromRule: r.From,
		To:       to,
		ToType:   toKind,
		ToRule:   r.To,
		Status:   r.Status,
	}
	if host := urlnorm.HostOf(to); host != "" && host != e.site.Host() {
		res.Host = host
	}
	return res
}
