package auth

import (
	"context"

	"github.com/b2bcrm/crm-api/internal/domain"
)

// UserContext holds authenticated user information for the request
type UserContext struct {
	UserID   int
	UserCode string
	FullName string
	Role     domain.Role
}

type contextKey string

const userContextKey contextKey = "userContext"
const clientIPKey contextKey = "clientIP"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// IsManager reports whether the acting user holds the Manager role
func (u *UserContext) IsManager() bool {
	return u.Role == domain.RoleManager
}

// IsAdmin reports whether the acting user holds the Admin role
func (u *UserContext) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// CanApprove reports whether the acting user may approve or reject
// contracts. Approval is role-gated, not team-scoped: any Manager or
// Admin may approve any contract.
func (u *UserContext) CanApprove() bool {
	return u.Role == domain.RoleManager || u.Role == domain.RoleAdmin
}

// WithClientIP stores the request's resolved client IP in the context
// so services can stamp it on audit entries without touching the
// transport layer.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext returns the resolved client IP, or "Unknown" when
// the request metadata was never attached (non-HTTP callers).
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey).(string); ok && ip != "" {
		return ip
	}
	return "Unknown"
}
