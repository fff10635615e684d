// Package httputil holds request helpers shared by the API middleware.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address used to key per-client state such as rate
// limiters. With trustProxy, the first X-Forwarded-For entry that parses as
// an IP wins, then X-Real-IP; malformed header values are ignored so a
// client cannot mint arbitrary keys. Otherwise, and as the fallback, the
// host part of RemoteAddr is used.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := parseIP(first); ip != "" {
				return ip
			}
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseIP normalizes s to its canonical textual form, accepting an optional
// port. It returns "" when s is not an IP address.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
