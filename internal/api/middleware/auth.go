package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/ayo6706/trading-backoffice/internal/api/problem"
	"github.com/ayo6706/trading-backoffice/internal/auth"
	"github.com/ayo6706/trading-backoffice/internal/policy"
)

type contextKey string

const (
	identityContextKey contextKey = "identity"
	traceContextKey    contextKey = "trace_id"
)

// AuthMiddleware validates the bearer access token and injects the caller's
// identity into the context.
func AuthMiddleware(tokens *auth.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/authorization-header-required"), http.StatusText(http.StatusUnauthorized), "Authorization header required")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader || tokenString == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token-format"), http.StatusText(http.StatusUnauthorized), "Invalid token format")
				return
			}
			if tokens == nil {
				problem.Write(w, r, http.StatusInternalServerError, problem.Type("auth/misconfigured"), http.StatusText(http.StatusInternalServerError), "auth is not configured")
				return
			}

			identity, err := tokens.ParseAccess(tokenString)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/invalid-token"), http.StatusText(http.StatusUnauthorized), "Invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole lets the request through when the caller holds one of roles.
func RequireRole(roles ...policy.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.Type("auth/unauthenticated"), http.StatusText(http.StatusUnauthorized), "authentication required")
				return
			}
			for _, role := range roles {
				if identity.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			problem.Write(w, r, http.StatusForbidden, problem.Type("auth/insufficient-permissions"), http.StatusText(http.StatusForbidden), "insufficient permissions")
		})
	}
}

func WithIdentity(ctx context.Context, identity policy.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the authenticated caller.
func IdentityFromContext(ctx context.Context) (policy.Identity, bool) {
	if ctx == nil {
		return policy.Identity{}, false
	}
	identity, ok := ctx.Value(identityContextKey).(policy.Identity)
	return identity, ok
}

// TraceIDFromContext returns the trace id for the request.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(traceContextKey).(string); ok {
		return v
	}
	return ""
}
