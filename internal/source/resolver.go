package source

import (
	"sort"

	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

// StaticResolver resolves content ids from a fixed id to permalink table.
type StaticResolver struct {
	links  map[int]string
	byPath map[string]int
}

func NewStaticResolver(site *urlnorm.Site, links map[int]string) *StaticResolver {
	if site == nil {
		site = urlnorm.NewSite("")
	}
	r := &StaticResolver{
		links:  make(map[int]string, len(links)),
		byPath: make(map[string]int, len(links)),
	}
	ids := make([]int, 0, len(links))
	for id := range links {
		ids = append(ids, id)
	}
	// lowest id wins when two ids share a permalink
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	for _, id := range ids {
		link := links[id]
		r.links[id] = link
		key := site.NormalizeRequest(link).PathKey
		r.byPath[key] = id
	}
	return r
}

// Permalink implements common.Resolver.
func (r *StaticResolver) Permalink(id int) (string, bool) {
	if r == nil {
		return "", false
	}
	link, ok := r.links[id]
	return link, ok
}

// IDFor returns the content id whose permalink has the same path as req,
// 0 when none does.
func (r *StaticResolver) IDFor(req urlnorm.Request) int {
	if r == nil {
		return 0
	}
	return r.byPath[req.PathKey]
}

func (r *StaticResolver) Len() int {
	if r == nil {
		return 0
	}
	return len(r.links)
}
