package match

import (
	"log/slog"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/redirtxt/redirtxt/internal/rule/common"
)

// Regex matches the site-relative request URI, query string included,
// case-insensitively.
type Regex struct {
	pattern string
	regex   *regexp2.Regexp
}

func (r *Regex) Kind() common.Kind {
	return common.KindRegex
}

func (r *Regex) Match(meta *common.Metadata) (string, bool) {
	uri := meta.Request.Raw
	ok, err := r.regex.MatchString(uri)
	if err != nil {
		slog.Warn("regexp2.MatchString", slog.String("pattern", r.pattern), slog.Any("error", err))
		return "", false
	}
	return uri, ok
}

// HasQuery reports whether the pattern spells out a literal '?'.
func (r *Regex) HasQuery() bool {
	return strings.Contains(r.pattern, `\?`)
}

// Replace substitutes capture groups of the pattern matched against input
// into template. Both $N and \N group references are accepted.
func (r *Regex) Replace(input, template string) (string, error) {
	return r.regex.Replace(input, NormalizeTemplate(template), -1, -1)
}

func (r *Regex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(r.Kind())),
		slog.String("pattern", r.pattern),
	)
}

func NewRegex(pattern string, patterns *PatternCache) Matcher {
	regex, err := patterns.Compile(pattern)
	if err != nil {
		return nil
	}
	return &Regex{
		pattern: pattern,
		regex:   regex,
	}
}

// NormalizeTemplate rewrites numbered group references to the braced ${N}
// form so that a reference followed by a digit or name character is not read
// as a different group.
func NormalizeTemplate(template string) string {
	if !strings.ContainsAny(template, `$\`) {
		return template
	}
	var b strings.Builder
	b.Grow(len(template) + 8)
	for i := 0; i < len(template); i++ {
		c := template[i]
		if (c == '$' || c == '\\') && i+1 < len(template) && isDigit(template[i+1]) {
			j := i + 1
			for j < len(template) && isDigit(template[j]) {
				j++
			}
			b.WriteString("${")
			b.WriteString(template[i+1 : j])
			b.WriteByte('}')
			i = j - 1
			continue
		}
		if c == '$' && i+1 < len(template) && template[i+1] == '$' {
			b.WriteString("$$")
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}
