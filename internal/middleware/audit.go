package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// IsAdminAgent reports whether ua matches the configured admin agent,
// ignoring case and surrounding whitespace
func IsAdminAgent(ua, adminAgent string) bool {
	admin := strings.TrimSpace(adminAgent)
	if admin == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(ua), admin)
}

// AdminAudit records requests made with the admin User-Agent on a dedicated
// audit logger. Other requests pass through untouched.
func AdminAudit(logger *slog.Logger, adminAgent string) func(http.Handler) http.Handler {
	audit := logger.With(slog.String("audit", "admin"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsAdminAgent(r.UserAgent(), adminAgent) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &ResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			audit.Info("admin request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("query", r.URL.RawQuery),
				slog.Int("status", wrapped.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("client_ip", clientIP(r)),
			)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
