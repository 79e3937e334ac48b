package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mcoot/memorygame/internal/api/apierr"
	"github.com/mcoot/memorygame/internal/model"
)

type contextKey string

const identityContextKey contextKey = "identity"

// IdentityResolver resolves bearer credentials to identities
type IdentityResolver interface {
	Resolve(ctx context.Context, credential string) (*model.ResolvedIdentity, error)
}

// Auth requires a valid bearer credential and puts its identity in the context
func Auth(resolver IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				// A token for a deleted account cannot authenticate anything
				if errors.Is(err, model.ErrUnknownIdentity) {
					err = apierr.NewUnauthorizedError()
				}
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ExtractToken returns the bearer token from the Authorization header, or ""
// when there is none. Other schemes and an empty Bearer token count as no
// credential.
func ExtractToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetIdentity returns the authenticated identity from the request context
func GetIdentity(ctx context.Context) *model.ResolvedIdentity {
	identity, _ := ctx.Value(identityContextKey).(*model.ResolvedIdentity)
	return identity
}

// MustGetIdentity returns the authenticated identity or panics
func MustGetIdentity(ctx context.Context) *model.ResolvedIdentity {
	identity := GetIdentity(ctx)
	if identity == nil {
		panic("no identity in context - auth middleware not applied?")
	}
	return identity
}
