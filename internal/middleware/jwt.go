package myMiddleware

import (
	"context"
	"net/http"
	"strings"

	"iptv-live/internal/identity"

	"github.com/google/uuid"
)

type contextKey string

const IdentityKey contextKey = "identity"

// IdentityResolver turns a bearer token into an identity. Invalid tokens
// resolve to a guest.
type IdentityResolver interface {
	Resolve(connectionID string, h identity.Handshake) identity.Identity
}

type AuthMiddleware struct {
	resolver IdentityResolver
}

func NewAuthMiddleware(r IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: r}
}

func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 {
				tokenString = parts[1]
			}
		}

		// Fallback: Check Query Param
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			http.Error(w, "Missing authentication token", http.StatusUnauthorized)
			return
		}

		id := am.resolver.Resolve("rest-"+uuid.NewString(), identity.Handshake{Token: tokenString})
		if id.IsGuest() {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !id.IsAdmin() {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFrom(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(identity.Identity)
	return id, ok
}

// WithIdentity is used by handlers' tests to skip token parsing.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}
