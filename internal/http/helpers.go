package http

import (
	"crypto/rand"
	"encoding/hex"
	"net"
	"net/http"
	"strings"

	"qualitycost/internal/core"
	applog "qualitycost/internal/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ctxlog returns the request-scoped logger installed by the log middleware.
func ctxlog(r *http.Request) *applog.Logger {
	return applog.FromContext(r.Context())
}

// generateRequestID creates a random identifier for request tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "req_unknown"
	}
	return "req_" + hex.EncodeToString(bytes)
}

// extractClientIP returns the client address, honouring proxy headers.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// sanitizeInput trims whitespace and strips control characters from form
// values before they reach validation.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
}

// rupees formats a money amount for display, e.g. "₹125,000".
func rupees(m core.Money) string {
	return "₹" + m.Grouped()
}
