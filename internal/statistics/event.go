package statistics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/redirtxt/redirtxt/internal/rule/common"
)

// Event is one entry of the redirect / not-found log.
type Event struct {
	URLFrom   string    `json:"url_from"`
	URLTo     string    `json:"url_to,omitempty"`
	Status    int       `json:"status"`
	FromRule  string    `json:"from_rule,omitempty"`
	FromType  string    `json:"from_type,omitempty"`
	ToRule    string    `json:"to_rule,omitempty"`
	ToType    string    `json:"to_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// IsNotFound reports whether the event belongs to the not-found log.
func (e *Event) IsNotFound() bool {
	return e.Status == http.StatusNotFound && e.FromRule == ""
}

func (e *Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("url_from", e.URLFrom),
		slog.String("url_to", e.URLTo),
		slog.Int("status", e.Status),
		slog.String("from_rule", e.FromRule),
	)
}

func redirectEvent(res *common.Result, userAgent, referrer string) *Event {
	return &Event{
		URLFrom:   res.From,
		URLTo:     res.To,
		Status:    res.Status,
		FromRule:  res.FromRule,
		FromType:  string(res.FromType),
		ToRule:    res.ToRule,
		ToType:    string(res.ToType),
		UserAgent: userAgent,
		Referrer:  referrer,
	}
}

func notFoundEvent(uri, userAgent, referrer string) *Event {
	return &Event{
		URLFrom:   uri,
		Status:    http.StatusNotFound,
		UserAgent: userAgent,
		Referrer:  referrer,
	}
}

// HitRecord counts how often a rule fired.
type HitRecord struct {
	FromRule string    `json:"from_rule"`
	ToRule   string    `json:"to_rule"`
	Status   int       `json:"status"`
	Count    int       `json:"count"`
	LastHit  time.Time `json:"last_hit"`
}
