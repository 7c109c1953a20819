package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
)

type contextKey string

const userIDKey contextKey = "user_id"

// IdentityResolver turns a bearer token into a user id ("" when unknown).
type IdentityResolver interface {
	ResolveUser(ctx context.Context, token string) (string, error)
}

// Identity resolves the Authorization header once per request and stores
// the user id, or nothing, in the request context. It never rejects a
// request; handlers decide what an anonymous caller may do.
func Identity(resolver IdentityResolver, logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := resolver.ResolveUser(r.Context(), token)
			if err != nil {
				logger.Warn("session lookup failed; treating request as anonymous", "err", err)
			}
			if userID != "" {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the caller resolved by Identity, or "".
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}
