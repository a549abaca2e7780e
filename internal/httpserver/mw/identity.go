package mw

import (
	"context"
	"net/http"

	"github.com/linkboard/linkboard/internal/domain"
	"github.com/linkboard/linkboard/internal/identity"
)

type identityCtxKey struct{}

// Identity resolves the caller from the Authorization header and stores
// it in the request context. Anonymous callers pass through with a nil
// identity; access decisions belong to the permission resolver, not
// here.
func Identity(p *identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := p.FromRequest(r); id != nil {
				r = r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFrom returns the verified caller identity, or nil for
// anonymous requests.
func IdentityFrom(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return id
}
