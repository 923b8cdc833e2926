package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

func writeRules(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
}

func TestStatic(t *testing.T) {
	r := NewStatic("a: b")
	assert.Equal(t, "a: b", r.Text())
	assert.Equal(t, "", r.File())
	assert.NoError(t, r.Reload())
	assert.Error(t, r.Watch(context.Background(), 0))

	var zero Rules
	assert.Equal(t, "", zero.Text())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redirects.txt")
	writeRules(t, path, "a: b")

	r, err := NewFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a: b", r.Text())
	assert.Equal(t, uint64(1), r.Version())

	var seen string
	r.OnChange(func(text string) { seen = text })

	writeRules(t, path, "c: d")
	require.NoError(t, r.Reload())
	assert.Equal(t, "c: d", r.Text())
	assert.Equal(t, "c: d", seen)
	assert.Equal(t, uint64(2), r.Version())
}

func TestFile_Unreadable(t *testing.T) {
	r, err := NewFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "", r.Text())
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "redirects.txt")
	writeRules(t, path, "a: b")

	r, err := NewFile(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, 20*time.Millisecond) }()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	writeRules(t, path, "c: d")

	assert.Eventually(t, func() bool { return r.Text() == "c: d" }, 2*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestStaticResolver(t *testing.T) {
	site := urlnorm.NewSite("https://example.com/blog")
	r := NewStaticResolver(site, map[int]string{
		1: "/blog/hello-world/",
		2: "https://example.com/blog/About",
		3: "/blog/about",
	})
	assert.Equal(t, 3, r.Len())

	link, ok := r.Permalink(1)
	assert.True(t, ok)
	assert.Equal(t, "/blog/hello-world/", link)
	_, ok = r.Permalink(9)
	assert.False(t, ok)

	assert.Equal(t, 1, r.IDFor(site.NormalizeRequest("/blog/Hello-World?x=1")))
	assert.Equal(t, 2, r.IDFor(site.NormalizeRequest("/blog/about/")))
	assert.Equal(t, 0, r.IDFor(site.NormalizeRequest("/blog/contact")))

	var nilResolver *StaticResolver
	_, ok = nilResolver.Permalink(1)
	assert.False(t, ok)
	assert.Equal(t, 0, nilResolver.IDFor(site.NormalizeRequest("/")))
}
