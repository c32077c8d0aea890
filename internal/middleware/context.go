package middleware

import (
	"context"

	"github.com/DrawzeoBarrela/pix-pocket-brasil/pkg/auth"
)

type contextKey string

const (
	ContextUserID contextKey = "userID"
	ContextRole   contextKey = "role"
)

func GetUserID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserID).(string)
	return val, ok && val != ""
}

func GetRole(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextRole).(string)
	return val, ok
}

func withClaims(ctx context.Context, claims *auth.Claims) context.Context {
	ctx = context.WithValue(ctx, ContextUserID, claims.UserID)
	return context.WithValue(ctx, ContextRole, claims.Role)
}
