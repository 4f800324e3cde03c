package middleware

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/globaldex/internal/middleware"
)

// Logging creates request logging middleware for the API
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger)
}

// AdminAudit creates the admin audit middleware for the API
func AdminAudit(logger *slog.Logger, adminAgent string) func(http.Handler) http.Handler {
	return middleware.AdminAudit(logger, adminAgent)
}
