// Package token guards operational endpoints with a shared static token.
package token

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"donorhub/pkg/requestcontext"
)

// Header carries the operator token. A "Bearer" Authorization header is also
// accepted so Prometheus scrape configs can use bearer_token.
const Header = "X-Ops-Token"

// Require rejects requests whose token does not match expected. An empty
// expected token disables the check.
func Require(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if expected == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(presented(r)), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "ops token mismatch",
					"request_id", requestcontext.RequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"ops token required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presented(r *http.Request) string {
	if t := r.Header.Get(Header); t != "" {
		return t
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}
