package common

import "log/slog"

// Result is the outcome of a successful match.
type Result struct {
	From     string `json:"from"`
	FromType Kind   `json:"from_type"`
	FromRule string `json:"from_rule"`
	To       string `json:"to"`
	ToType   Kind   `json:"to_type"`
	ToRule   string `json:"to_rule"`
	Status   int    `json:"status"`

	// Host is the destination host when it differs from the site host. The
	// caller adds it to its safe-redirect allow-list before redirecting.
	Host string `json:"host,omitempty"`
}

func (r *Result) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("from", r.From),
		slog.String("to", r.To),
		slog.Int("status", r.Status),
		slog.String("from_rule", r.FromRule),
		slog.String("from_type", string(r.FromType)),
		slog.String("to_rule", r.ToRule),
		slog.String("to_type", string(r.ToType)),
	)
}
