// internal/token/request.go
package token

import (
	"net"
	"net/http"
	"strings"

	"approval-service/internal/models"
)

const unknown = "unknown"

// ClientIP extracts the caller's IP for audit purposes: the first
// X-Forwarded-For entry if present, otherwise the transport peer address.
// The value is untrusted and recorded as-is.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return unknown
}

// UserAgent returns the User-Agent header or "unknown" if absent.
func UserAgent(r *http.Request) string {
	if ua := r.Header.Get("User-Agent"); ua != "" {
		return ua
	}
	return unknown
}

// MetaFromRequest captures the audit metadata for an inbound request.
func MetaFromRequest(r *http.Request) models.EventMeta {
	return models.EventMeta{
		IP:        ClientIP(r),
		UserAgent: UserAgent(r),
	}
}
