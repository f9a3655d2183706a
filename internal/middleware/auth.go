package middleware

import (
	"net/http"
	"strings"

	"momentum/internal/auth"
	"momentum/internal/httputil"
)

// publicPaths are served without authentication.
var publicPaths = map[string]bool{
	"/health": true,
}

// AuthMiddleware validates the bearer token and stores the user ID in the
// request context. Requests without a token are attempted anyway (the client
// sends anonymously when no token is persisted) and rejected here, which is
// where auth is enforced.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, httputil.WithUserID(r, claims.GetUserID()))
		})
	}
}
