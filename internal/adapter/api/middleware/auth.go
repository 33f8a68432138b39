package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/V4T54L/reqnotify/internal/domain"
)

const APIKeyHeader = "X-API-Key"

// AdminAuth is a middleware factory guarding the admin API. The key is read from
// X-API-Key or an "Authorization: Bearer" header. A nil repo disables the check.
func AdminAuth(repo domain.APIKeyRepository, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if repo == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := presentedKey(r)
			if apiKey == "" {
				logger.Warn("admin request without API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				http.Error(w, "Unauthorized: API key required", http.StatusUnauthorized)
				return
			}

			ok, err := repo.IsValid(r.Context(), apiKey)
			switch {
			case err != nil:
				logger.Error("failed to validate admin API key", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			case !ok:
				logger.Warn("invalid admin API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				http.Error(w, "Unauthorized: Invalid API key", http.StatusUnauthorized)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func presentedKey(r *http.Request) string {
	if k := r.Header.Get(APIKeyHeader); k != "" {
		return k
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
