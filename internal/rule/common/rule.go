package common

import (
	"log/slog"
	"strconv"
	"strings"
)

type Kind string

const (
	KindURL   Kind = "url"
	KindID    Kind = "id"
	KindRegex Kind = "regex"
)

// Rule is one "from: to" line of a rule set together with the status that
// was current when the line was parsed.
type Rule struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Status int    `json:"status" yaml:"status"`
}

// KindOf classifies a raw rule value by its shape.
func KindOf(v string) Kind {
	switch {
	case IsNumeric(v):
		return KindID
	case strings.HasPrefix(v, "^"):
		return KindRegex
	default:
		return KindURL
	}
}

// FromKind is the kind of the rule's source value.
func (r Rule) FromKind() Kind {
	return KindOf(r.From)
}

// ToKind is the kind of the rule's destination. A destination paired with a
// regex source is a substitution template.
func (r Rule) ToKind() Kind {
	if IsNumeric(r.To) {
		return KindID
	}
	if r.FromKind() == KindRegex {
		return KindRegex
	}
	return KindURL
}

func (r Rule) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("from", r.From),
		slog.String("to", r.To),
		slog.Int("status", r.Status),
	)
}

// IsNumeric reports whether v is a non-empty run of ASCII digits.
func IsNumeric(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

// ID parses a numeric rule value. ok is false for anything KindOf would not
// classify as KindID, or for values overflowing int.
func ID(v string) (id int, ok bool) {
	if !IsNumeric(v) {
		return 0, false
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return id, true
}
