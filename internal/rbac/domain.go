package rbac

import "time"

// Role represents a named permission grouping shared across users.
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Permission represents an atomic capability. Permissions attach to
// roles only, never directly to users.
type Permission struct {
	ID          int64
	Name        string
	Description string
}

// RoleWithPermissions pairs a role with its attached permissions.
type RoleWithPermissions struct {
	Role
	Permissions []Permission
}

// Member is a user as seen by the RBAC graph, with role names attached.
type Member struct {
	UserID    int64
	Handle    string
	Email     string
	RoleNames []string
}
