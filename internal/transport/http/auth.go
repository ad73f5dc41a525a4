package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/auth"
	"github.com/dxaginfo/fan-meet-greet-manager-2025/internal/domain"
)

type identityKey struct{}

// WithIdentity attaches a verified identity to the request context.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the verified caller, if any.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// Authenticate verifies a bearer token when one is present and rejects
// invalid credentials. Requests without a token pass through anonymous;
// per-route guards decide whether that is acceptable.
func Authenticate(a auth.Authenticator, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		credential := strings.TrimPrefix(header, "Bearer ")
		if credential == header || credential == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, "malformed authorization header")
			return
		}

		id, err := a.Authenticate(r.Context(), credential)
		if err != nil {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireUser rejects anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireElevated rejects callers without an organizer or admin role.
func RequireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthenticated, domain.ErrUnauthenticated.Error())
			return
		}
		if !id.Role.Elevated() {
			writeError(w, http.StatusForbidden, codeForbidden, domain.ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
