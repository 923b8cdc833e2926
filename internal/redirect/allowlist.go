package redirect

import (
	"log/slog"
	"net"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/redirtxt/redirtxt/internal/urlnorm"
)

// AllowList decides which hosts an absolute redirect may point at.
type AllowList struct {
	site  *urlnorm.Site
	hosts map[string]struct{}
}

func NewAllowList(site *urlnorm.Site, hosts []string) *AllowList {
	if site == nil {
		site = urlnorm.NewSite("")
	}
	a := &AllowList{
		site:  site,
		hosts: make(map[string]struct{}, 2*len(hosts)+2),
	}
	if site.Host() != "" {
		a.add(site.Host())
	}
	for _, h := range hosts {
		a.add(h)
	}
	return a
}

func (a *AllowList) add(host string) {
	for _, v := range hostVariants(host) {
		a.hosts[v] = struct{}{}
	}
}

// Allowed reports whether host is the site host, a configured host, or one
// of extra, each with and without "www.".
func (a *AllowList) Allowed(host string, extra ...string) bool {
	host = canonicalHost(host)
	if host == "" {
		return false
	}
	if _, ok := a.hosts[host]; ok {
		return true
	}
	for _, e := range extra {
		for _, v := range hostVariants(e) {
			if v == host {
				return true
			}
		}
	}
	return false
}

// Safe returns to when it is relative or points at an allowed host, and the
// site home otherwise.
func (a *AllowList) Safe(to string, extra ...string) string {
	if !urlnorm.IsAbsolute(to) && !strings.HasPrefix(to, "//") {
		return to
	}
	if a.Allowed(urlnorm.HostOf(to), extra...) {
		return to
	}
	fallback := a.site.Home()
	if fallback == "" {
		fallback = "/"
	}
	slog.Warn("Redirect host not allowed, using home", slog.String("to", to), slog.String("home", fallback))
	return fallback
}

func canonicalHost(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}

// hostVariants returns host plus its "www." twin. The "www." form is only
// added for registrable domains, never for deeper subdomains.
func hostVariants(host string) []string {
	host = canonicalHost(host)
	if host == "" {
		return nil
	}
	if bare, ok := strings.CutPrefix(host, "www."); ok {
		return []string{host, bare}
	}
	if net.ParseIP(host) != nil {
		return []string{host}
	}
	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil && etld1 == host {
		return []string{host, "www." + host}
	}
	return []string{host}
}
