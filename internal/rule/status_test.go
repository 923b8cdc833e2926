package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodes_Builtin(t *testing.T) {
	codes := DefaultStatusCodes()
	for _, code := range []int{301, 302, 303, 307, 308, 403, 404, 410} {
		assert.True(t, codes.Valid(code), code)
	}
	assert.False(t, codes.Valid(200))
	assert.False(t, codes.Valid(451))
	assert.Equal(t, "Moved Permanently", codes.Label(301))
	assert.Equal(t, "Gone", codes.Label(410))
}

func TestStatusCodes_Additional(t *testing.T) {
	codes := NewStatusCodes(map[int]string{
		451: "Unavailable For Legal Reasons",
		300: "",
		301: "Custom",
	})
	assert.True(t, codes.Valid(451))
	assert.Equal(t, "Multiple Choices", codes.Label(300))
	assert.Equal(t, "Moved Permanently", codes.Label(301))

	list := codes.List()
	assert.Len(t, list, 10)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}
	assert.Equal(t, 300, list[0].Code)
}

func TestStatusCodes_Resolve(t *testing.T) {
	codes := DefaultStatusCodes()
	assert.Equal(t, 302, codes.Resolve(302, 301))
	assert.Equal(t, 307, codes.Resolve(999, 307))
	assert.Equal(t, 301, codes.Resolve(999, 0))
}
