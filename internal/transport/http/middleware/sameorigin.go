package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

const errCrossOrigin = "Cross-origin request rejected"

// SameOrigin rejects state-changing requests sent by another site. Browsers
// report the sender through Sec-Fetch-Site, Origin or Referer, checked in
// that order. A request carrying none of them did not come from a browser
// form and is let through.
//
// It does not depend on a session cookie being present: a forged login
// happens before the victim has one.
func SameOrigin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !isMutation(c.Request.Method) || sameOrigin(c.Request) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": errCrossOrigin})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func sameOrigin(r *http.Request) bool {
	if site := r.Header.Get("Sec-Fetch-Site"); site != "" {
		return site == "same-origin" || site == "none"
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		return origin != "null" && hostMatches(origin, r.Host)
	}
	if referer := r.Header.Get("Referer"); referer != "" {
		return hostMatches(referer, r.Host)
	}
	return true
}

func hostMatches(raw, host string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return canonicalHost(u.Host, u.Scheme) == canonicalHost(host, u.Scheme)
}

// canonicalHost lowercases h and drops the port when it is the scheme default.
func canonicalHost(h, scheme string) string {
	h = strings.ToLower(h)
	switch {
	case scheme == "http" && strings.HasSuffix(h, ":80"):
		return strings.TrimSuffix(h, ":80")
	case scheme == "https" && strings.HasSuffix(h, ":443"):
		return strings.TrimSuffix(h, ":443")
	}
	return h
}
