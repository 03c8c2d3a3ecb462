package auth

import "context"

type identityKey struct{}

// WithIdentity binds a verified identity id to ctx.
func WithIdentity(ctx context.Context, identityID string) context.Context {
	return context.WithValue(ctx, identityKey{}, identityID)
}

// IdentityFrom returns the identity bound by the auth middleware. Handlers
// must use it, never an id taken from the path or body, for ownership checks.
func IdentityFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(identityKey{}).(string)
	return id, ok && id != ""
}
