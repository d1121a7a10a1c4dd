// Package fingerprint turns a client address into a coarse, day-scoped,
// one-way sender identifier.
//
// The raw address is truncated to its network prefix (/24 for IPv4, the
// first four groups for IPv6) and hashed with a salt derived from the UTC
// calendar date and a static secret. The salt is recomputed on every call,
// so fingerprints rotate at UTC midnight with no shared state to manage.
package fingerprint

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// UnknownIP is returned when no client address can be determined.
const UnknownIP = "unknown"

// EdgeHeaders are hosting-platform headers carrying the original client
// address, checked after X-Forwarded-For.
var EdgeHeaders = []string{
	"X-Vercel-Forwarded-For",
	"CF-Connecting-IP",
	"Fly-Client-IP",
}

// ClientIP extracts the client address from proxy headers in priority order:
// X-Forwarded-For (first hop), platform edge headers, X-Real-IP, then the
// socket peer address. Returns UnknownIP when none yields a value.
func ClientIP(h http.Header, remoteAddr string) string {
	if xff := h.Get("X-Forwarded-For"); xff != "" {
		first := xff
		if idx := strings.Index(xff, ","); idx >= 0 {
			first = xff[:idx]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	for _, name := range EdgeHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			return v
		}
	}
	if xri := strings.TrimSpace(h.Get("X-Real-Ip")); xri != "" {
		return xri
	}
	if remoteAddr != "" {
		if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
			return host
		}
		return remoteAddr
	}
	return UnknownIP
}

// Anonymize reduces an address to its network prefix.
//
//	203.0.113.45            → 203.0.113.0
//	2001:db8:85a3:8d3:1:2:3:4 → 2001:db8:85a3:8d3::
//
// Strings that do not parse as an IP are returned unchanged. The result is
// idempotent: Anonymize(Anonymize(x)) == Anonymize(x).
func Anonymize(ip string) string {
	ip = strings.TrimSpace(ip)
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}
	v6 := parsed.To16()
	groups := make([]string, 4)
	for i := range groups {
		groups[i] = fmt.Sprintf("%x", uint16(v6[2*i])<<8|uint16(v6[2*i+1]))
	}
	return strings.Join(groups, ":") + "::"
}
