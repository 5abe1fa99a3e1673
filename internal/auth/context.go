package auth

import "context"

// Principal is the authenticated identity resolved for a request. It is
// derived from a verified access token plus the user record and never
// persisted.
type Principal struct {
	ID   int64
	Role string
}

type ctxKey int

const principalKey ctxKey = iota

// ContextWithPrincipal stores the resolved principal in the context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RequireRole fails with ErrForbidden unless the principal carries the role.
func RequireRole(p Principal, role string) error {
	if p.Role != role {
		return ErrForbidden
	}
	return nil
}
