package http

import (
	"context"

	"temple-services-backend/internal/authz"
	"temple-services-backend/internal/security"
)

type contextKey int

const (
	authContextKey contextKey = iota
	identityKey
)

func withCaller(ctx context.Context, ident *security.Identity, ac authz.Context) context.Context {
	ctx = context.WithValue(ctx, identityKey, ident)
	return context.WithValue(ctx, authContextKey, ac)
}

// AuthContextFrom returns the authorization context resolved for the request.
// Anonymous callers on public routes get the zero Context.
func AuthContextFrom(ctx context.Context) authz.Context {
	ac, _ := ctx.Value(authContextKey).(authz.Context)
	return ac
}

// IdentityFrom returns the verified token identity, or nil for anonymous callers.
func IdentityFrom(ctx context.Context) *security.Identity {
	ident, _ := ctx.Value(identityKey).(*security.Identity)
	return ident
}
