package rule

import (
	"net/http"
	"sort"

	"github.com/redirtxt/redirtxt/internal/rule/common"
)

var builtinStatusCodes = []int{
	http.StatusMovedPermanently,
	http.StatusFound,
	http.StatusSeeOther,
	http.StatusTemporaryRedirect,
	http.StatusPermanentRedirect,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusGone,
}

type StatusCode struct {
	Code  int    `json:"code"`
	Label string `json:"label"`
}

// StatusCodes is the set of status codes a rule set may use. It is built
// once at startup and read concurrently afterwards.
type StatusCodes struct {
	labels map[int]string
	list   []StatusCode
}

// NewStatusCodes merges additional codes into the built-in set. Built-in
// codes keep their labels when additional redefines them.
func NewStatusCodes(additional map[int]string) *StatusCodes {
	labels := make(map[int]string, len(builtinStatusCodes)+len(additional))
	for _, code := range builtinStatusCodes {
		labels[code] = http.StatusText(code)
	}
	for code, label := range additional {
		if _, exists := labels[code]; exists {
			continue
		}
		if label == "" {
			label = http.StatusText(code)
		}
		labels[code] = label
	}

	list := make([]StatusCode, 0, len(labels))
	for code, label := range labels {
		list = append(list, StatusCode{Code: code, Label: label})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Code < list[j].Code })

	return &StatusCodes{labels: labels, list: list}
}

var defaultStatusCodes = NewStatusCodes(nil)

// DefaultStatusCodes returns the built-in set.
func DefaultStatusCodes() *StatusCodes {
	return defaultStatusCodes
}

func (s *StatusCodes) Valid(code int) bool {
	_, ok := s.labels[code]
	return ok
}

func (s *StatusCodes) Label(code int) string {
	return s.labels[code]
}

// List returns the codes sorted numerically.
func (s *StatusCodes) List() []StatusCode {
	out := make([]StatusCode, len(s.list))
	copy(out, s.list)
	return out
}

// Resolve substitutes def for codes outside the set.
func (s *StatusCodes) Resolve(code, def int) int {
	if s.Valid(code) {
		return code
	}
	if def == 0 {
		return common.DefaultStatus
	}
	return def
}
