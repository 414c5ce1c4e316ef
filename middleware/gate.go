package middleware

import (
	"net/http"

	goSession "github.com/MrEthical07/goSession"
)

var unauthorizedBody = ErrorBody{
	Error:   "Unauthorized",
	Message: "Authentication required. Please log in.",
}

// RequireUser lets the request through only when its session carries an
// identity, and attaches that identity with goSession.WithUser. Otherwise it
// answers 401 and next is not called.
//
// RequireUser must run inside Sessions.
func RequireUser(engine *goSession.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteJSON(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			u, err := engine.Authenticate(r.Context())
			if err != nil {
				WriteJSON(w, http.StatusUnauthorized, unauthorizedBody)
				return
			}

			ctx := goSession.WithUser(r.Context(), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
