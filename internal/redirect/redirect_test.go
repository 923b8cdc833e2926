package redirect

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redirtxt/redirtxt/internal/config"
	"github.com/redirtxt/redirtxt/internal/rule/action"
	"github.com/redirtxt/redirtxt/internal/rule/common"
	"github.com/redirtxt/redirtxt/internal/source"
	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

const testRules = `
old-page: new-page
^/test/(.*): /new-test/$1
external: https://partner.example.org/landing

# content ids
1: 4

404:
dead-link: /x

410:
removed: /x

403:
secret: /x
`

func testConfig() *config.Config {
	return &config.Config{
		HomeURL:              "https://example.com",
		DefaultStatus:        301,
		ProtectedPaths:       config.DefaultProtectedPaths,
		AllowedRedirectHosts: []string{"partner.example.org"},
		Regex:                config.RegexConfig{Timeout: 100 * time.Millisecond, CacheSize: 16},
		ResourcePaths:        true,
		Resources: map[int]string{
			1: "/hello-world",
			4: "/new-post",
		},
	}
}

type recordingSink struct {
	results []*common.Result
	agents  []string
}

func (s *recordingSink) RecordRedirect(res *common.Result, userAgent, referrer string) {
	s.results = append(s.results, res)
	s.agents = append(s.agents, userAgent)
}

func newTestRedirector(t *testing.T, cfg *config.Config, sink Sink) *Redirector {
	t.Helper()
	resolver := source.NewStaticResolver(urlnorm.NewSite(cfg.HomeURL), cfg.Resources)
	return New(cfg, source.NewStatic(testRules), resolver, sink)
}

func TestIsProtected(t *testing.T) {
	prefixes := config.DefaultProtectedPaths
	tests := []struct {
		path string
		want bool
	}{
		{"/wp-admin", true},
		{"/wp-admin/", true},
		{"/wp-admin/hello", true},
		{"/WP-ADMIN/options.php", true},
		{"/wp-adminhello", false},
		{"/wp-login.php", true},
		{"/wp-json/wp/v2/posts", true},
		{"/wp-jsonx", false},
		{"/", false},
		{"/blog/wp-admin", false},
		{"//wp-login.php", true},
		{"/wp%2Dlogin.php", true},
		{"/wp-admin%2Foptions.php", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, IsProtected(tt.path, prefixes))
		})
	}
	assert.False(t, IsProtected("/anything", []string{"", "/"}))
}

func TestEvaluate(t *testing.T) {
	rd := newTestRedirector(t, testConfig(), nil)

	tests := []struct {
		name   string
		uri    string
		typ    action.Type
		status int
		target string
		phase  string
	}{
		{"url rule", "/old-page", action.TypeRedirect, 301, "/new-page", "url"},
		{"regex rule", "/test/url", action.TypeRedirect, 301, "/new-test/url", "url"},
		{"allowed external host", "/external", action.TypeRedirect, 301, "https://partner.example.org/landing", "url"},
		{"id rule", "/hello-world", action.TypeRedirect, 301, "/new-post", "id"},
		{"not found", "/dead-link", action.TypeNotFound, 404, "", "url"},
		{"gone", "/removed", action.TypeDeny, 410, "", "url"},
		{"forbidden", "/secret", action.TypeDeny, 403, "", "url"},
		{"no rule", "/unknown", action.TypeNone, 0, "", "none"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := rd.Evaluate(tt.uri)
			assert.Equal(t, tt.typ, d.Action.Type)
			assert.Equal(t, tt.status, d.Action.Status)
			assert.Equal(t, tt.target, d.Target)
			assert.Equal(t, tt.phase, d.Phase)
		})
	}
}

func TestEvaluate_Protected(t *testing.T) {
	rd := New(testConfig(), source.NewStatic("^/wp-admin/(.*): /gone\nwp-login.php: /x"), nil, nil)

	d := rd.Evaluate("/wp-admin/options.php")
	assert.True(t, d.Protected)
	assert.Equal(t, action.TypeNone, d.Action.Type)
	assert.Nil(t, d.Result)

	for _, uri := range []string{"/wp-login.php", "//wp-login.php", "/wp%2Dlogin.php", "/WP-LOGIN.PHP", "//wp-admin//options.php"} {
		d = rd.Evaluate(uri)
		assert.True(t, d.Protected, uri)
		assert.Equal(t, action.TypeNone, d.Action.Type, uri)
		assert.Empty(t, d.Target, uri)
	}
}

func TestEvaluateID(t *testing.T) {
	rd := newTestRedirector(t, testConfig(), nil)

	d := rd.EvaluateID("/any-path", 1)
	assert.Equal(t, action.TypeRedirect, d.Action.Type)
	assert.Equal(t, "/new-post", d.Target)
	assert.Equal(t, "/hello-world", d.Result.From)

	// an explicit zero id turns off path resolution
	d = rd.EvaluateID("/hello-world", 0)
	assert.Equal(t, action.TypeNone, d.Action.Type)
}

func TestEvaluate_ResourcePathsOff(t *testing.T) {
	cfg := testConfig()
	cfg.ResourcePaths = false
	rd := newTestRedirector(t, cfg, nil)

	assert.Equal(t, action.TypeNone, rd.Evaluate("/hello-world").Action.Type)
}

func TestEvaluate_UnsafeHostFallsBackHome(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedRedirectHosts = nil
	rd := New(cfg, source.NewStatic("a: https://partner.example.org/x"), nil, nil)

	d := rd.Evaluate("/a")
	// the host of the matched destination is always allowed
	assert.Equal(t, "https://partner.example.org/x", d.Target)

	assert.Equal(t, "https://example.com", rd.AllowList().Safe("https://evil.example.net/", ""))
}

func TestEvaluate_RulesReload(t *testing.T) {
	src := &mutableSource{text: "a: b"}
	rd := New(testConfig(), src, nil, nil)
	assert.Equal(t, "/b", rd.Evaluate("/a").Target)

	src.text = "a: c"
	assert.Equal(t, "/c", rd.Evaluate("/a").Target)
}

type mutableSource struct{ text string }

func (m *mutableSource) Text() string { return m.text }

func TestHandle_RecordsEvents(t *testing.T) {
	sink := &recordingSink{}
	rd := newTestRedirector(t, testConfig(), sink)

	req := httptest.NewRequest("GET", "https://example.com/old-page?utm=1", nil)
	req.Header.Set("User-Agent", "test-agent")
	d := rd.Handle(req)
	assert.Equal(t, "/new-page?utm=1", d.Target)

	rd.Handle(httptest.NewRequest("GET", "/unknown", nil))
	rd.Handle(httptest.NewRequest("GET", "/removed", nil))

	require.Len(t, sink.results, 2)
	assert.Equal(t, "old-page", sink.results[0].FromRule)
	assert.Equal(t, "test-agent", sink.agents[0])
	assert.Equal(t, 410, sink.results[1].Status)
}

func TestAllowList(t *testing.T) {
	a := NewAllowList(urlnorm.NewSite("https://example.com/blog"), []string{"Partner.Example.org", "cdn.example.net"})

	tests := []struct {
		host  string
		extra []string
		want  bool
	}{
		{"example.com", nil, true},
		{"www.example.com", nil, true},
		{"EXAMPLE.COM:443", nil, true},
		{"partner.example.org", nil, true},
		{"www.partner.example.org", nil, false},
		{"cdn.example.net", nil, true},
		{"www.cdn.example.net", nil, false},
		{"evil.example.com", nil, false},
		{"other.org", []string{"other.org"}, true},
		{"www.other.org", []string{"other.org"}, true},
		{"other.org", []string{"www.other.org"}, true},
		{"", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, a.Allowed(tt.host, tt.extra...))
		})
	}

	assert.Equal(t, "/relative", a.Safe("/relative"))
	assert.Equal(t, "https://example.com/x", a.Safe("https://example.com/x"))
	assert.Equal(t, "https://example.com/blog", a.Safe("https://evil.example.net/"))
	assert.Equal(t, "https://example.com/blog", a.Safe("//evil.example.net/"))

	root := NewAllowList(nil, nil)
	assert.Equal(t, "/", root.Safe("https://evil.example.net/"))
}

func TestAllowList_IDN(t *testing.T) {
	a := NewAllowList(urlnorm.NewSite(""), []string{"bücher.example"})
	assert.True(t, a.Allowed("xn--bcher-kva.example"))
	assert.True(t, a.Allowed("BÜCHER.example"))
}
