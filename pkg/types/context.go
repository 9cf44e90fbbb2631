package types

import "context"

type contextKey string

const claimsContextKey contextKey = "user_claims"

// ContextWithClaims attaches authenticated user claims to a context
func ContextWithClaims(ctx context.Context, claims *UserClaims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}

// ClaimsFromContext extracts authenticated user claims from a context
func ClaimsFromContext(ctx context.Context) (*UserClaims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*UserClaims)
	return claims, ok
}
