package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// AdminToken guards the back-office routes with a static bearer token. An
// empty configured token disables the admin surface entirely rather than
// leaving it open.
func AdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				logger.Warn("admin route called but no admin token configured",
					"path", r.URL.Path)
				writeAdminError(w, http.StatusForbidden, "admin API disabled")
				return
			}

			provided := r.Header.Get("Authorization")
			provided = strings.TrimPrefix(provided, "Bearer ")

			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				logger.Warn("admin route rejected: invalid token",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				writeAdminError(w, http.StatusUnauthorized, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAdminError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
