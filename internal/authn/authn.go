// Package authn is the Auth Gate: it resolves a bearer token from an
// incoming request to the user that owns it, and carries that user through
// the request context the way the teacher's pkg/auth carries a Session.
package authn

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   uuid.UUID
	Username string
}

// UserLookup resolves a bearer token to its owning Principal. Returns
// (Principal{}, false) for an unknown token.
type UserLookup func(ctx context.Context, token string) (Principal, bool)

type contextKey struct{}

// IntoContext returns a copy of ctx carrying p.
func IntoContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the Principal carried by ctx, if any.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// BearerToken extracts the token from an "Authorization: Bearer {token}"
// header, or "" if the header is absent or malformed.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// Middleware attaches the caller's Principal to the request context when a
// valid bearer token is present, and otherwise leaves the request
// unauthenticated — it never itself rejects a request. Handlers that
// require auth check FromContext and return Unauthorized themselves,
// matching endpoints where auth is optional (e.g. personalized reads).
func Middleware(lookup UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token != "" {
				if p, ok := lookup(r.Context(), token); ok {
					r = r.WithContext(IntoContext(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
