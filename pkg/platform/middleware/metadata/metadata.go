// Package metadata extracts client network metadata from requests.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"
)

// ClientIP returns the originating client address, preferring proxy headers
// over the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// ClientAgent summarizes the User-Agent as "browser/os", "bot:<name>" or
// "unknown" for access logs.
func ClientAgent(r *http.Request) string {
	raw := r.Header.Get("User-Agent")
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	if ua.Bot() {
		return "bot:" + name
	}
	if os := ua.OS(); os != "" {
		return name + "/" + os
	}
	return name
}
