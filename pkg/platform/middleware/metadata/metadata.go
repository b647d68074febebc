// Package metadata records who is calling (client address and user agent) for
// audit events and the per-IP rate limiter.
package metadata

import (
	"net"
	"net/http"
	"strings"

	"teamdns/pkg/requestcontext"
)

func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientMetadata(r.Context(), ClientIPFromRequest(r), r.Header.Get("User-Agent"))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers the left-most X-Forwarded-For entry, then
// X-Real-IP, then the socket peer. Header values that do not parse as an IP
// are skipped.
func ClientIPFromRequest(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); validIP(first) {
		return strings.TrimSpace(first)
	}
	if real := r.Header.Get("X-Real-IP"); validIP(real) {
		return strings.TrimSpace(real)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func validIP(s string) bool {
	return net.ParseIP(strings.TrimSpace(s)) != nil
}
