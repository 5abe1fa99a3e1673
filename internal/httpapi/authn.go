package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/kamideathless/books-shop/internal/auth"
	"github.com/kamideathless/books-shop/internal/catalog"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
)

// bearerToken pulls the access token from the auth cookie or, failing that,
// an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if c, err := r.Cookie(accessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// withAuth is the access guard. It admits only requests carrying a valid,
// unexpired access token whose subject still exists, and stores the resolved
// principal in the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			handleDomainError(w, r, auth.ErrNotAuthenticated)
			return
		}
		claims, err := a.tokens.Verify(token)
		if err != nil {
			handleDomainError(w, r, err)
			return
		}
		if claims.TokenType != auth.TokenTypeAccess {
			handleDomainError(w, r, auth.ErrWrongTokenType)
			return
		}
		user, err := a.users.FindUser(r.Context(), claims.UID)
		if err != nil {
			// A token naming a deleted account is no longer a credential.
			if errors.Is(err, catalog.ErrNotFound) {
				handleDomainError(w, r, auth.ErrInvalidToken)
				return
			}
			handleDomainError(w, r, err)
			return
		}
		principal := auth.Principal{ID: user.ID, Role: string(user.Role)}
		ctx := auth.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminOnly gates a route to principals holding the admin role. Must run
// after withAuth.
func (a *API) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok {
			handleDomainError(w, r, auth.ErrNotAuthenticated)
			return
		}
		if err := auth.RequireRole(p, string(catalog.RoleAdmin)); err != nil {
			handleDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// mustPrincipal fetches the guard-resolved principal for handlers behind
// withAuth.
func mustPrincipal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		handleDomainError(w, r, auth.ErrNotAuthenticated)
	}
	return p, ok
}
