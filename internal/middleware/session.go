package middleware

import (
	"net/http"

	"freshscan/internal/service/session"

	"github.com/google/uuid"
)

// SessionCookie names the cookie holding the session id.
const SessionCookie = "freshscan_session"

// SessionMiddleware attaches the caller's session id to the request context,
// issuing a new one when the cookie is missing or malformed.
func SessionMiddleware(secure bool, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(SessionCookie); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				id = cookie.Value
			}
		}

		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(session.WithID(r.Context(), id)))
	})
}
