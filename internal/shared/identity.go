package shared

import "context"

// CurrentUser is the resolved identity of the caller, established once
// per request by the identity middleware and carried in the request
// context. Absence means the caller is anonymous.
type CurrentUser struct {
	ID     int64
	Handle string
	Email  string
}

type currentUserContextKey struct{}

// ContextWithUser stores the resolved caller identity in context.
func ContextWithUser(ctx context.Context, user *CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey{}, user)
}

// UserFromContext extracts the resolved caller, or nil for anonymous.
func UserFromContext(ctx context.Context) *CurrentUser {
	user, _ := ctx.Value(currentUserContextKey{}).(*CurrentUser)
	return user
}
