package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Resolver extracts the caller's IP for rate limiting and request logs.
// With TrustProxy unset only r.RemoteAddr is used, so clients cannot
// choose their own limiter bucket by sending X-Forwarded-For.
type Resolver struct {
	TrustProxy bool
}

// RealClientIP returns the client IP from the request.
func (res Resolver) RealClientIP(r *http.Request) string {
	if res.TrustProxy {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return strings.TrimSpace(host)
}

// RealClientIP uses RemoteAddr only (no proxy headers).
func RealClientIP(r *http.Request) string {
	return Resolver{}.RealClientIP(r)
}
