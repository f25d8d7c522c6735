package auth

import (
	"context"
	"net/http"
	"strings"

	e "github.com/gartstein/companyhub/internal/company/errors"
)

type contextKey string

const userContextKey contextKey = "user"

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userContextKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userContextKey).(int64)
	return id, ok
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// HTTPMiddleware rejects requests without a valid bearer token and stores
// the token's user id in the request context.
func HTTPMiddleware(next http.Handler, tokens *TokenManager, onError ErrorWriter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, err := extractTokenFromHeader(r.Header.Get("Authorization"))
		if err != nil {
			onError(w, r, err)
			return
		}

		userID, err := tokens.ValidateToken(tokenString)
		if err != nil {
			onError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func extractTokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", &e.Error{Kind: e.ErrUnauthenticated, Code: e.ErrInvalidToken.Code, Message: "Not authenticated."}
	}

	scheme, tokenString, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
		return "", e.ErrInvalidToken
	}
	return strings.TrimSpace(tokenString), nil
}
