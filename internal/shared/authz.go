package shared

// Platform permissions. Permission names are the stable contract between
// route guards and the seeded RBAC graph.
const (
	PermViewBooks  = "view_books"
	PermCreateBook = "create_book"
	PermEditBook   = "edit_book"
	PermDeleteBook = "delete_book"

	PermAdminPanel  = "admin_panel"
	PermManageUsers = "manage_users"
	PermManageRoles = "manage_roles"
)

// Role names with baked-in meaning: every registered account starts with
// RoleUser; RoleAdmin holds every permission after baseline seeding.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AllPermissions lists every permission the platform knows about.
func AllPermissions() []string {
	return []string{
		PermCreateBook,
		PermEditBook,
		PermDeleteBook,
		PermViewBooks,
		PermAdminPanel,
		PermManageUsers,
		PermManageRoles,
	}
}
