package utils

import (
	"context"
)

type contextKey string

const ContextRoleKey contextKey = "role"

// Roles recognised by the host API.
const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
)

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextRoleKey, role)
}

func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(ContextRoleKey).(string)
	return role, ok && role != ""
}
