package auth

import (
	"context"
	"net/http"
	"strings"

	"vodworks/internal/httpkit"
)

type contextKey string

const userIDKey contextKey = "auth.user_id"

// UserID returns the authenticated user id stored by RequireAuth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// ContextWithUserID is exposed for handler tests.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user id on the request context.
func RequireAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				httpkit.WriteErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header missing", nil)
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httpkit.WriteErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid authorization header format", nil)
				return
			}

			userID, err := VerifyToken(secret, token)
			if err != nil {
				httpkit.WriteErr(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}
