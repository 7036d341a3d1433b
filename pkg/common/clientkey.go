package common

import (
	"net/http"
	"strings"
)

// UnknownClient is the sentinel key used when no client address can be
// derived from the request.
const UnknownClient = "unknown"

// ClientKey derives a rate-limiting key from request metadata. Best effort:
// first X-Forwarded-For entry, then X-Real-IP, then the RemoteAddr host,
// falling back to a sentinel. Total over all inputs, never fails.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		addr = addr[:idx]
	}
	if addr == "" {
		return UnknownClient
	}
	return addr
}
