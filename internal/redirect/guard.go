package redirect

import (
	"net/url"
	"strings"
)

// Guard decides whether a post-login redirect target is safe. A target is
// allowed only when its origin (scheme://host[:port]) exactly matches one of
// the configured origins; paths and queries are not restricted.
type Guard struct {
	origins map[string]struct{}
}

// NewGuard normalizes each configured origin the same way candidates are
// normalized. Entries that are not themselves valid http(s) origins are
// dropped.
func NewGuard(allowed []string) *Guard {
	g := &Guard{origins: make(map[string]struct{}, len(allowed))}
	for _, raw := range allowed {
		if origin, ok := Origin(strings.TrimSpace(raw)); ok {
			g.origins[origin] = struct{}{}
		}
	}
	return g
}

// IsAllowed reports whether candidate may be used as a redirect target.
func (g *Guard) IsAllowed(candidate string) bool {
	origin, ok := Origin(candidate)
	if !ok {
		return false
	}
	_, ok = g.origins[origin]
	return ok
}

// Origins returns the normalized allow-list.
func (g *Guard) Origins() []string {
	out := make([]string, 0, len(g.origins))
	for o := range g.origins {
		out = append(out, o)
	}
	return out
}

// Origin extracts the normalized origin of an absolute http(s) URL.
// The host is lowercased; the port is kept only when written explicitly.
// Anything else (relative, scheme-relative, opaque, non-http schemes,
// embedded credentials, empty host) is rejected.
func Origin(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	// url.Parse lowercases the scheme.
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Opaque != "" || u.User != nil {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if strings.TrimSpace(host) == "" {
		return "", false
	}
	if strings.Contains(host, ":") {
		// IPv6 literal; Hostname strips the brackets.
		host = "[" + host + "]"
	}

	if port := u.Port(); port != "" {
		return u.Scheme + "://" + host + ":" + port, true
	}
	return u.Scheme + "://" + host, true
}
