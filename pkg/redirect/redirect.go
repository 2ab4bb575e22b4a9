package redirect

import (
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/steeltoeoss/parsemd/pkg/config"
)

// Redirector maps requests for the legacy documentation hosts onto the new site
type Redirector struct {
	legacyHosts map[string]struct{}
	target      string // scheme://host[:port]
	strip       map[string]struct{}
}

// New creates a Redirector from validated redirect settings.
// With an empty NewHost the Redirector never rewrites.
func New(cfg config.RedirectConfig) *Redirector {
	r := &Redirector{
		legacyHosts: make(map[string]struct{}, len(cfg.LegacyHosts)),
		strip:       make(map[string]struct{}, len(cfg.StripSegments)),
	}
	for _, h := range cfg.LegacyHosts {
		r.legacyHosts[strings.ToLower(h)] = struct{}{}
	}
	for _, s := range cfg.StripSegments {
		r.strip[strings.ToLower(s)] = struct{}{}
	}
	if cfg.NewHost != "" {
		r.target = "https://" + cfg.NewHost
		if cfg.NewPort != "" {
			r.target += ":" + cfg.NewPort
		}
	}
	return r
}

// Enabled reports whether a target host is configured
func (r *Redirector) Enabled() bool {
	return r.target != ""
}

// Rewrite returns the redirect location for a request to host and path.
// ok is false when the host is not a legacy host or redirects are disabled.
func (r *Redirector) Rewrite(host, path string) (location string, ok bool) {
	if !r.Enabled() {
		return "", false
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if _, legacy := r.legacyHosts[strings.ToLower(host)]; !legacy {
		return "", false
	}
	return r.target + r.rewritePath(path), true
}

// rewritePath maps API reference paths onto their new locations.
// /api/browser/... loses its component segments and becomes /api/...,
// any other /api/... moves under /docs/. Other paths are kept as-is.
func (r *Redirector) rewritePath(path string) string {
	segments := strings.Split(path, "/")
	if len(segments) < 3 || !strings.EqualFold(segments[1], "api") {
		return path
	}

	if strings.EqualFold(segments[2], "browser") {
		kept := []string{"", "api"}
		for _, seg := range segments[3:] {
			if _, drop := r.strip[strings.ToLower(seg)]; drop {
				continue
			}
			kept = append(kept, seg)
		}
		return swapExt(strings.Join(kept, "/"))
	}

	segments[1] = "docs"
	return swapExt(strings.Join(segments, "/"))
}

func swapExt(path string) string {
	if strings.HasSuffix(strings.ToLower(path), ".md") {
		return path[:len(path)-len(".md")] + ".html"
	}
	return path
}

// Middleware issues a permanent redirect for legacy host requests and passes
// every other request to next. The query string is preserved. It is meant to
// be mounted by the server hosting the published site, for example with a chi
// router's Use.
func Middleware(rw *Redirector, log *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			location, ok := rw.Rewrite(req.Host, req.URL.Path)
			if !ok {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.RawQuery != "" {
				location += "?" + req.URL.RawQuery
			}
			log.WithFields(logrus.Fields{"host": req.Host, "path": req.URL.Path}).Tracef("Redirecting to %s", location)
			http.Redirect(w, req, location, http.StatusMovedPermanently)
		})
	}
}
