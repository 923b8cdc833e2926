package redirect

import (
	"strings"

	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

// IsProtected reports whether path lies under one of prefixes. A prefix
// covers the path equal to it (trailing slash ignored) and everything below
// it, so "/wp-admin/" covers "/wp-admin" and "/wp-admin/x" but not
// "/wp-adminx". path is compared in canonical form, so encoded characters
// and repeated slashes cannot slip past a prefix.
func IsProtected(path string, prefixes []string) bool {
	path = urlnorm.CanonicalPath(path)
	for _, p := range prefixes {
		p = strings.TrimRight(strings.ToLower(strings.TrimSpace(p)), "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
