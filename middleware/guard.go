package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goEMS/session"
)

// DefaultLoginPath is where RequireLogin redirects when no path is given.
const DefaultLoginPath = "/login"

// SessionProvider supplies the current session. [session.Store] implements it.
type SessionProvider interface {
	Get() session.State
}

type stateContextKey struct{}

// StateFromContext returns the session captured by [RequireLogin].
func StateFromContext(ctx context.Context) (session.State, bool) {
	st, ok := ctx.Value(stateContextKey{}).(session.State)
	return st, ok
}

// WithState stores st on ctx the way [RequireLogin] does.
func WithState(ctx context.Context, st session.State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

// RequireLogin admits requests only while a user is logged in. Browsers are
// redirected to loginPath with 303 See Other; clients that ask for JSON get
// 401. The admitted session is placed on the request context.
func RequireLogin(provider SessionProvider, loginPath string) func(http.Handler) http.Handler {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provider == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			st := provider.Get()
			if !st.LoggedIn() {
				if wantsJSON(r) {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), st)))
		})
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
