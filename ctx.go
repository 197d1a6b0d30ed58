package auth

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithUserContext sets the resolved user record in the given context.
func WithUserContext(ctx context.Context, user map[string]any) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext finds the resolved user record in the context.
func UserFromContext(ctx context.Context) (map[string]any, bool) {
	raw, ok := ctx.Value(userCtxKey).(map[string]any)
	return raw, ok
}

// WithClaimsContext sets the verified claims in the given context.
func WithClaimsContext(ctx context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the verified claims from the context.
func ClaimsFromContext(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok
}
