package match

import (
	"log/slog"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultCacheSize    = 512
	DefaultCacheTTL     = 30 * time.Minute
	DefaultMatchTimeout = 100 * time.Millisecond
)

type compiled struct {
	regex *regexp2.Regexp
	err   error
}

// PatternCache keeps compiled regex sources across requests. Rule text is
// parsed again for every request, compiling its patterns is not repeated.
// Failed compilations are cached too so that a broken pattern is reported
// once rather than on every request.
type PatternCache struct {
	cache   *expirable.LRU[string, compiled]
	timeout time.Duration
}

// NewPatternCache returns a cache holding up to size patterns for ttl.
// timeout bounds a single match; zero disables the bound.
func NewPatternCache(size int, ttl, timeout time.Duration) *PatternCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &PatternCache{
		cache:   expirable.NewLRU[string, compiled](size, nil, ttl),
		timeout: timeout,
	}
}

// Compile returns the compiled, case-insensitive form of pattern. A nil
// cache compiles without caching.
func (c *PatternCache) Compile(pattern string) (*regexp2.Regexp, error) {
	if c == nil {
		return compile(pattern, DefaultMatchTimeout)
	}
	if hit, ok := c.cache.Get(pattern); ok {
		return hit.regex, hit.err
	}
	regex, err := compile(pattern, c.timeout)
	if err != nil {
		slog.Warn("Invalid regex rule", slog.String("pattern", pattern), slog.Any("error", err))
	}
	c.cache.Add(pattern, compiled{regex: regex, err: err})
	return regex, err
}

func (c *PatternCache) Len() int {
	if c == nil {
		return 0
	}
	return c.cache.Len()
}

func compile(pattern string, timeout time.Duration) (*regexp2.Regexp, error) {
	regex, err := regexp2.Compile(pattern, regexp2.IgnoreCase)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		regex.MatchTimeout = timeout
	}
	return regex, nil
}
