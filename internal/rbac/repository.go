package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookshelf-cms/bookshelf/internal/platform/db"
	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// RepositoryPort defines persistence operations on the RBAC graph. Every
// read runs against the committed graph at call time; nothing is cached
// across requests.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	RolePermissions(ctx context.Context, roleID int64) ([]Permission, error)

	ListPermissions(ctx context.Context) ([]Permission, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
	HasRole(ctx context.Context, userID int64, roleName string) (bool, error)
	HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error)
	EffectivePermissions(ctx context.Context, userID int64) ([]string, error)

	ListMembers(ctx context.Context) ([]Member, error)
	EnsureBaseline(ctx context.Context, grants map[string][]string, descriptions map[string]string) error
}

// PGRepository implements RepositoryPort on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const roleColumns = `id, name, description, created_at, updated_at`

// ListRoles returns all roles ordered by name.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListRolesWithPermissions returns every role with its permissions.
func (r *PGRepository) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := r.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		perms, err := r.RolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, RoleWithPermissions{Role: role, Permissions: perms})
	}
	return out, nil
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	return r.scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

// GetRoleByName fetches a role by its unique name.
func (r *PGRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return r.scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

// CreateRole inserts a role and wires its permissions in one transaction.
func (r *PGRepository) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			INSERT INTO roles (name, description, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			RETURNING `+roleColumns, name, description)
		if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, role.ID, permissionIDs)
	})
	if err != nil {
		return Role{}, mapPGError(err)
	}
	return role, nil
}

// UpdateRole updates a role and replaces its permission set in one
// transaction, so a concurrent permission check never observes a half
// applied edit.
func (r *PGRepository) UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error) {
	var role Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			UPDATE roles SET name = $2, description = $3, updated_at = NOW()
			WHERE id = $1
			RETURNING `+roleColumns, id, name, description)
		if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return shared.ErrNotFound
			}
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		return attachPermissions(ctx, tx, id, permissionIDs)
	})
	if err != nil {
		return Role{}, mapPGError(err)
	}
	return role, nil
}

// DeleteRole removes a role. Join rows to users and permissions go with
// it (cascade); the users and permissions themselves stay.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// RolePermissions lists the permissions attached to a role.
func (r *PGRepository) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.description
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// ListPermissions returns all permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// AssignRole grants a role to a user. Granting a role the user already
// holds is a no-op.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	return err
}

// RemoveRole revokes a role from a user. Revoking a role the user does
// not hold is a no-op.
func (r *PGRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	return err
}

// HasRole reports whether the user currently holds the named role.
func (r *PGRepository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN roles ro ON ro.id = ur.role_id
			WHERE ur.user_id = $1 AND ro.name = $2
		)`, userID, roleName).Scan(&ok)
	return ok, err
}

// HasPermission reports whether any role held by the user carries the
// named permission. Evaluated against the live graph on every call.
func (r *PGRepository) HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.name = $2
		)`, userID, permissionName).Scan(&ok)
	return ok, err
}

// EffectivePermissions returns the deduplicated permission names the
// user holds through all roles.
func (r *PGRepository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListMembers returns all users with their role names, for the admin
// surfaces.
func (r *PGRepository) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.handle, u.email, COALESCE(array_agg(ro.name ORDER BY ro.name) FILTER (WHERE ro.name IS NOT NULL), '{}')
		FROM users u
		LEFT JOIN user_roles ur ON ur.user_id = u.id
		LEFT JOIN roles ro ON ro.id = ur.role_id
		GROUP BY u.id, u.handle, u.email
		ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Handle, &m.Email, &m.RoleNames); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// EnsureBaseline seeds the canonical permissions and roles inside one
// transaction. Every insert is existence-checked by name, so repeated or
// concurrent invocation cannot duplicate rows, and any failure rolls the
// whole call back.
func (r *PGRepository) EnsureBaseline(ctx context.Context, grants map[string][]string, descriptions map[string]string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for roleName, permNames := range grants {
			for _, permName := range permNames {
				desc := descriptions[permName]
				if desc == "" {
					desc = permName
				}
				if _, err := tx.Exec(ctx, `
					INSERT INTO permissions (name, description)
					VALUES ($1, $2)
					ON CONFLICT (name) DO NOTHING`, permName, desc); err != nil {
					return err
				}
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO roles (name, description, created_at, updated_at)
				VALUES ($1, $1, NOW(), NOW())
				ON CONFLICT (name) DO NOTHING`, roleName); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id, created_at)
				SELECT ro.id, p.id, NOW()
				FROM roles ro, permissions p
				WHERE ro.name = $1 AND p.name = ANY($2)
				ON CONFLICT (role_id, permission_id) DO NOTHING`, roleName, permNames); err != nil {
				return err
			}
		}
		return nil
	})
}

func attachPermissions(ctx context.Context, tx pgx.Tx, roleID int64, permissionIDs []int64) error {
	for _, permID := range permissionIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (role_id, permission_id) DO NOTHING`, roleID, permID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepository) scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrDuplicate
	}
	return err
}

var _ RepositoryPort = (*PGRepository)(nil)
