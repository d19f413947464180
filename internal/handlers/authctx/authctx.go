package authctx

import (
	"context"

	"github.com/campuscore/backend/internal/service/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Create a new context carrying the verified access-token claims
func New(ctx context.Context, claims auth.AccessTokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// Extract the claims from the context
func FromContext(ctx context.Context) (auth.AccessTokenClaims, bool) {
	claims, ok := ctx.Value(claimsKey).(auth.AccessTokenClaims)
	return claims, ok
}
