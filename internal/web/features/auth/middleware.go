package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/framedeck-labs/framedeck/internal/store"
)

// SessionName is the cookie holding the login session.
const SessionName = "framedeck"

type contextKey int

const userKey contextKey = 0

// CurrentUser returns the signed-in user placed on the context by
// RequireUser, or nil outside of it.
func CurrentUser(ctx context.Context) *store.User {
	u, _ := ctx.Value(userKey).(*store.User)
	return u
}

// WithUser returns a context carrying the signed-in user. The middleware
// uses it; tests build authenticated requests with it directly.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// RequireUser loads the signed-in user onto the request context.
// Unauthenticated page requests are redirected to the sign-in form;
// dashboard event requests (under /app/t/) get a plain 401 instead,
// since redirecting a background fetch would be meaningless.
func RequireUser(sessionStore sessions.Store, st store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := sessionUser(r, sessionStore, st)
			if user == nil {
				if strings.HasPrefix(r.URL.Path, "/app/t/") {
					http.Error(w, "signed out", http.StatusUnauthorized)
				} else {
					http.Redirect(w, r, "/login", http.StatusSeeOther)
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireAdmin rejects non-admin users. It must run inside RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r.Context())
		if user == nil || !user.IsAdmin {
			http.Error(w, "admin only", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// sessionUser resolves the session cookie to a user, or nil when the
// session is missing, malformed, or references a deleted account.
func sessionUser(r *http.Request, sessionStore sessions.Store, st store.Store) *store.User {
	session, err := sessionStore.Get(r, SessionName)
	if err != nil {
		return nil
	}
	userID, ok := session.Values["userID"].(string)
	if !ok || userID == "" {
		return nil
	}
	user, err := st.GetUser(r.Context(), userID)
	if err != nil {
		return nil
	}
	return user
}
