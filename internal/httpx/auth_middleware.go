package httpx

import (
	"net/http"
	"strings"

	"libraryapi/internal/auth"
)

// AuthMiddleware requires a valid bearer token whose subject is a user UUID.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Missing bearer token", nil)
				return
			}
			token := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := auth.ParseToken(secret, token)
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				JSONError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token subject", nil)
				return
			}

			ctx := ContextWithUser(r.Context(), userID.String(), claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
