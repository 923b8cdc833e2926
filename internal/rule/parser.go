package rule

import (
	"strconv"
	"strings"

	"github.com/redirtxt/redirtxt/internal/rule/common"
)

const separator = ": "

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

type ParseOptions struct {
	// AllowURLOnly keeps rules whose source is not a content id.
	AllowURLOnly bool
	// AllowIDFrom keeps rules whose source is a content id.
	AllowIDFrom bool

	// DefaultStatus applies until the first status line. Zero means 301.
	DefaultStatus int
	// Codes recognized in status lines. Nil means the built-in set.
	Codes *StatusCodes
}

// DefaultParseOptions keeps URL and regex rules and drops id rules.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{AllowURLOnly: true}
}

type SkipReason string

const (
	SkipMalformed SkipReason = "malformed"
	SkipEmptyPart SkipReason = "empty from or to"
	SkipIDFrom    SkipReason = "id source not allowed"
	SkipURLFrom   SkipReason = "url source not allowed"
)

// SkippedLine is a non-blank line that produced neither a rule nor a status
// change.
type SkippedLine struct {
	Line   int        `json:"line"`
	Text   string     `json:"text"`
	Reason SkipReason `json:"reason"`
}

type Report struct {
	Rules   []common.Rule `json:"rules"`
	Skipped []SkippedLine `json:"skipped,omitempty"`
}

// Parse compiles rule-set text into rules in source order. It never fails:
// lines it cannot use are dropped.
func Parse(text string, opts ParseOptions) []common.Rule {
	return parse(text, opts, nil)
}

// ParseRules parses with DefaultParseOptions.
func ParseRules(text string) []common.Rule {
	return Parse(text, DefaultParseOptions())
}

// ParseReport is Parse plus the list of skipped lines, for tooling.
func ParseReport(text string, opts ParseOptions) Report {
	var report Report
	report.Rules = parse(text, opts, func(s SkippedLine) {
		report.Skipped = append(report.Skipped, s)
	})
	return report
}

func parse(text string, opts ParseOptions, onSkip func(SkippedLine)) []common.Rule {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	codes := opts.Codes
	if codes == nil {
		codes = DefaultStatusCodes()
	}
	status := opts.DefaultStatus
	if status == 0 {
		status = common.DefaultStatus
	}

	skip := func(n int, line string, reason SkipReason) {
		if onSkip != nil {
			onSkip(SkippedLine{Line: n, Text: line, Reason: reason})
		}
	}

	var rules []common.Rule
	for i, line := range strings.Split(newlines.Replace(text), "\n") {
		n := i + 1
		line = strings.TrimSpace(stripComment(line))
		if line == "" {
			continue
		}

		if code, ok := statusLine(line, codes); ok {
			status = code
			continue
		}

		parts := strings.Split(line, separator)
		if len(parts) != 2 {
			skip(n, line, SkipMalformed)
			continue
		}
		from := strings.TrimSpace(parts[0])
		to := strings.TrimSpace(parts[1])
		if from == "" || to == "" {
			skip(n, line, SkipEmptyPart)
			continue
		}

		isID := common.IsNumeric(from)
		if isID && !opts.AllowIDFrom {
			skip(n, line, SkipIDFrom)
			continue
		}
		if !isID && !opts.AllowURLOnly {
			skip(n, line, SkipURLFrom)
			continue
		}

		rules = append(rules, common.Rule{From: from, To: to, Status: status})
	}
	return rules
}

// stripComment drops everything from the first unescaped '#'. "\#" stands
// for a literal '#'.
func stripComment(line string) string {
	if !strings.Contains(line, "#") {
		return line
	}
	var b strings.Builder
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c == '\\' && i+1 < len(line) && line[i+1] == '#' {
			b.WriteByte('#')
			i++
			continue
		}
		if c == '#' {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

func statusLine(line string, codes *StatusCodes) (int, bool) {
	digits, ok := strings.CutSuffix(line, ":")
	if !ok || !common.IsNumeric(digits) {
		return 0, false
	}
	code, err := strconv.Atoi(digits)
	if err != nil || strconv.Itoa(code) != digits || !codes.Valid(code) {
		return 0, false
	}
	return code, true
}
