package middleware

import (
	"net/http"

	"github.com/MrEthical07/goEMS/navigation"
)

// RequireRoute admits a request only when the session's role may open the
// request path (see [navigation.Allowed]). Unknown roles are refused. It reads
// the session captured by [RequireLogin] when present, and the provider
// otherwise.
func RequireRoute(provider SessionProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st, ok := StateFromContext(r.Context())
			if !ok {
				if provider == nil {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				st = provider.Get()
			}
			if !st.LoggedIn() {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			role, known := navigation.ParseRole(st.Role())
			if !known || !navigation.Allowed(role, r.URL.Path) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
