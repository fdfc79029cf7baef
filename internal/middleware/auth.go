package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AdminHeader carries the admin token.
const AdminHeader = "X-Admin-Token"

// AdminMiddleware chroni endpointy administracyjne (logi, czyszczenie historii).
// Bez skonfigurowanego tokenu są wyłączone.
func AdminMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		given := r.Header.Get(AdminHeader)
		if given == "" {
			// Nagłówek Authorization: Bearer <token>
			given = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
