package mw

import (
	"context"
	"encoding/json"
	"net/http"

	"orderdesk/internal/model"
)

type contextKey string

const UserCtxKey contextKey = "user"

// Sessions is the view of the session manager the middleware needs.
type Sessions interface {
	User() (model.User, bool)
	Expired() bool
}

// RequireSession rejects requests made while logged out. After the backend
// expired the token the message says so, letting the UI show the login form
// with a reason.
func RequireSession(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := sessions.User()
			if !ok {
				msg := "unauthorized"
				if sessions.Expired() {
					msg = "session expired"
				}
				writeError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := context.WithValue(r.Context(), UserCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after RequireSession.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func UserFrom(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(model.User)
	return user, ok
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
