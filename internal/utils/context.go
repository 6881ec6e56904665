package utils

import (
	"context"
)

type contextKey string

const ContextAdminKey contextKey = "isAdmin"

func IsAdminFromContext(ctx context.Context) bool {
	v := ctx.Value(ContextAdminKey)
	isAdmin, ok := v.(bool)
	return ok && isAdmin
}
