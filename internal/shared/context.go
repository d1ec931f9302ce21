package shared

import "context"

type sessionContextKey struct{}

type tenantContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// ContextWithTenant stores the authenticated business owner id in context.
func ContextWithTenant(ctx context.Context, ownerID int64) context.Context {
	return context.WithValue(ctx, tenantContextKey{}, ownerID)
}

// TenantFromContext returns the business owner id scoping the request.
// Zero means no authenticated owner; every data access path must refuse it.
func TenantFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(tenantContextKey{}).(int64)
	return id
}
