package ratelimit

import (
	"net/http"
	"strings"
)

// UnknownClient is returned when no proxy header identifies the client.
const UnknownClient = "unknown"

// ClientKey derives the client identity from proxy headers: the first
// X-Forwarded-For value, else X-Real-IP, else UnknownClient. It never fails.
func ClientKey(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	return UnknownClient
}
