// Package redirect runs the request pipeline: protected-path guard, rule
// matching in two phases, and the resulting action.
package redirect

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/redirtxt/redirtxt/internal/config"
	applog "github.com/redirtxt/redirtxt/internal/log"
	"github.com/redirtxt/redirtxt/internal/rule"
	"github.com/redirtxt/redirtxt/internal/rule/action"
	"github.com/redirtxt/redirtxt/internal/rule/common"
	"github.com/redirtxt/redirtxt/internal/rule/match"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

// TextSource yields the current rules text.
type TextSource interface {
	Text() string
}

// Resolver resolves content ids both ways.
type Resolver interface {
	common.Resolver
	IDFor(req urlnorm.Request) int
}

// Sink receives redirect events.
type Sink interface {
	RecordRedirect(res *common.Result, userAgent, referrer string)
}

type Phase int

const (
	PhaseNone Phase = iota
	// PhaseURL evaluates url and regex rules.
	PhaseURL
	// PhaseID evaluates id rules for requests that resolved to content.
	PhaseID
)

func (p Phase) String() string {
	switch p {
	case PhaseURL:
		return "url"
	case PhaseID:
		return "id"
	default:
		return "none"
	}
}

// Decision is the outcome of evaluating one request.
type Decision struct {
	Action    action.Action  `json:"action"`
	Result    *common.Result `json:"result,omitempty"`
	Phase     string         `json:"phase"`
	Protected bool           `json:"protected,omitempty"`
	// Target is the Location to send for a redirect, after the allow-list.
	Target string `json:"target,omitempty"`
}

func (d Decision) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Any("action", d.Action),
		slog.String("phase", d.Phase),
	}
	if d.Result != nil {
		attrs = append(attrs, slog.Any("result", d.Result))
	}
	if d.Protected {
		attrs = append(attrs, slog.Bool("protected", true))
	}
	return slog.GroupValue(attrs...)
}

type parsed struct {
	text string
	url  []common.Rule
	id   []common.Rule
}

// Redirector evaluates requests against the current rules. It is safe for
// concurrent use.
type Redirector struct {
	engine     *rule.Engine
	rules      TextSource
	resolver   Resolver
	sink       Sink
	allow      *AllowList
	protected  []string
	resolveIDs bool

	cache atomic.Pointer[parsed]
}

// New builds a Redirector from cfg. resolver and sink may be nil.
func New(cfg *config.Config, rules TextSource, resolver Resolver, sink Sink) *Redirector {
	site := urlnorm.NewSite(cfg.HomeURL)
	engine := rule.NewEngine(rule.EngineOptions{
		Site:          site,
		Codes:         cfg.StatusCodes(),
		DefaultStatus: cfg.DefaultStatus,
		Patterns:      match.NewPatternCache(cfg.Regex.CacheSize, match.DefaultCacheTTL, cfg.Regex.Timeout),
	})
	return &Redirector{
		engine:     engine,
		rules:      rules,
		resolver:   resolver,
		sink:       sink,
		allow:      NewAllowList(site, cfg.AllowedRedirectHosts),
		protected:  cfg.ProtectedPaths,
		resolveIDs: cfg.ResourcePaths,
	}
}

func (r *Redirector) Engine() *rule.Engine {
	return r.engine
}

func (r *Redirector) AllowList() *AllowList {
	return r.allow
}

func (r *Redirector) load() *parsed {
	text := r.rules.Text()
	if p := r.cache.Load(); p != nil && p.text == text {
		return p
	}
	p := &parsed{
		text: text,
		url:  rule.Parse(text, r.engine.ParseOptions(true, false)),
		id:   rule.Parse(text, r.engine.ParseOptions(false, true)),
	}
	r.cache.Store(p)
	return p
}

// Evaluate decides what to do with uri without recording anything.
func (r *Redirector) Evaluate(uri string) Decision {
	return r.evaluate(uri, -1)
}

// EvaluateID is Evaluate with the content id of the request already known.
// id 0 means the request resolved to no content.
func (r *Redirector) EvaluateID(uri string, id int) Decision {
	return r.evaluate(uri, id)
}

func (r *Redirector) evaluate(uri string, id int) Decision {
	var resolver common.Resolver
	if r.resolver != nil {
		resolver = r.resolver
	}
	meta := r.engine.NewMetadata(uri, 0, resolver)

	if IsProtected(meta.Request.Path, r.protected) {
		return Decision{Action: action.None, Phase: PhaseNone.String(), Protected: true}
	}

	rules := r.load()
	phase := PhaseURL
	res := r.engine.Match(meta, rules.url)

	if res == nil {
		if id < 0 {
			id = 0
			if r.resolveIDs && r.resolver != nil {
				id = r.resolver.IDFor(meta.Request)
			}
		}
		if id > 0 {
			meta.ResourceID = id
			phase = PhaseID
			res = r.engine.Match(meta, rules.id)
		}
	}
	if res == nil {
		return Decision{Action: action.None, Phase: PhaseNone.String()}
	}

	d := Decision{
		Action: action.Decide(res, r.engine.Codes(), r.engine.DefaultStatus()),
		Result: res,
		Phase:  phase.String(),
	}
	if d.Action.Type == action.TypeRedirect {
		d.Target = r.allow.Safe(d.Action.To, res.Host)
	}
	return d
}

// Handle evaluates req and records the event for any rule that fired.
func (r *Redirector) Handle(req *http.Request) Decision {
	d := r.Evaluate(req.URL.RequestURI())
	if d.Result != nil {
		applog.LogRequest(slog.LevelInfo, "Rule applied", req.URL.RequestURI(), slog.Any("decision", d))
		if r.sink != nil {
			r.sink.RecordRedirect(d.Result, req.UserAgent(), req.Referer())
		}
	}
	return d
}
