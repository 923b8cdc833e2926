package action

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/redirtxt/redirtxt/internal/rule"
	"github.com/redirtxt/redirtxt/internal/rule/common"
)

type Type string

const (
	TypeNone     Type = "NONE"
	TypeRedirect Type = "REDIRECT"
	TypeNotFound Type = "NOT-FOUND"
	TypeDeny     Type = "DENY"
)

// Action is what the host must do with a request.
//
//   - TypeRedirect: send a redirect to To with Status and stop processing.
//   - TypeDeny: send Status with an empty body and stop processing.
//   - TypeNotFound: mark the request as a genuine not-found and let the host
//     render its not-found page.
//   - TypeNone: continue normal request processing.
type Action struct {
	Type   Type   `json:"type"`
	To     string `json:"to,omitempty"`
	Status int    `json:"status,omitempty"`
}

var None = Action{Type: TypeNone}

// Decide turns a match result into an action. A status outside codes is
// replaced by def before dispatch.
func Decide(res *common.Result, codes *rule.StatusCodes, def int) Action {
	if res == nil {
		return None
	}
	if codes == nil {
		codes = rule.DefaultStatusCodes()
	}
	status := codes.Resolve(res.Status, def)

	switch {
	case status == http.StatusNotFound:
		return Action{Type: TypeNotFound, Status: status}
	case status >= http.StatusBadRequest:
		return Action{Type: TypeDeny, Status: status}
	default:
		return Action{Type: TypeRedirect, To: res.To, Status: status}
	}
}

func (a Action) String() string {
	b, _ := json.Marshal(a)
	return string(b)
}

func (a Action) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", string(a.Type))}
	if a.Status != 0 {
		attrs = append(attrs, slog.Int("status", a.Status))
	}
	if a.To != "" {
		attrs = append(attrs, slog.String("to", a.To))
	}
	return slog.GroupValue(attrs...)
}
