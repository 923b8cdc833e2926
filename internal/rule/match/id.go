package match

import (
	"log/slog"

	"github.com/redirtxt/redirtxt/internal/rule/common"
)

type ID struct {
	id int
}

func (m *ID) Kind() common.Kind {
	return common.KindID
}

// Match succeeds when the request resolved to the same content id. The
// reported source is that content's permalink.
func (m *ID) Match(meta *common.Metadata) (string, bool) {
	if meta.ResourceID == 0 || meta.ResourceID != m.id {
		return "", false
	}
	link, ok := meta.Permalink(m.id)
	if !ok {
		return meta.Request.Raw, true
	}
	return link, true
}

func (m *ID) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("type", string(m.Kind())),
		slog.Int("id", m.id),
	)
}

func NewID(raw string) Matcher {
	id, ok := common.ID(raw)
	if !ok {
		return nil
	}
	return &ID{id: id}
}
