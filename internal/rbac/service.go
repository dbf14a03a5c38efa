package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// ErrNoPermissions indicates a role form arrived without any permission.
var ErrNoPermissions = errors.New("rbac: role needs at least one permission")

// Service orchestrates RBAC operations on top of the repository.
type Service struct {
	repo   RepositoryPort
	audit  shared.AuditRecorder
	logger *slog.Logger

	baseline singleflight.Group
}

// NewService constructs a Service.
func NewService(repo RepositoryPort, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// ListRolesWithPermissions returns all roles with their permissions.
func (s *Service) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	return s.repo.ListRolesWithPermissions(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// GetRoleByName fetches a role by name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.GetRoleByName(ctx, name)
}

// RolePermissions lists the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.RolePermissions(ctx, roleID)
}

// CreateRole inserts a new role with the given permission set.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	if len(permissionIDs) == 0 {
		return Role{}, ErrNoPermissions
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description), permissionIDs)
}

// UpdateRole updates a role and replaces its permission set.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("rbac: role name required")
	}
	if len(permissionIDs) == 0 {
		return Role{}, ErrNoPermissions
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), permissionIDs)
}

// DeleteRole removes a role, detaching it from all users and
// permissions without touching those users or permissions.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// ListMembers returns all users with their role names.
func (s *Service) ListMembers(ctx context.Context) ([]Member, error) {
	return s.repo.ListMembers(ctx)
}

// AssignRole grants a role to a user; idempotent.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditActionRoleAssign, userID, roleID)
	return nil
}

// RemoveRole revokes a role from a user; idempotent.
func (s *Service) RemoveRole(ctx context.Context, actorID, userID, roleID int64) error {
	if err := s.repo.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditActionRoleRemove, userID, roleID)
	return nil
}

// HasRole reports whether the user currently holds the named role.
func (s *Service) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	return s.repo.HasRole(ctx, userID, roleName)
}

// HasPermission reports whether the user holds the named permission
// through any of their roles.
func (s *Service) HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	return s.repo.HasPermission(ctx, userID, permissionName)
}

// EffectivePermissions returns the user's current permission names.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.EffectivePermissions(ctx, userID)
}

// EnsureBaseline seeds the canonical roles and permissions: "admin"
// holds every permission, "user" only view_books. All-or-nothing and
// safe to run repeatedly. Concurrent calls collapse into a single
// seeding transaction.
func (s *Service) EnsureBaseline(ctx context.Context) error {
	_, err, _ := s.baseline.Do("baseline", func() (any, error) {
		return nil, s.ensureBaseline(ctx)
	})
	return err
}

func (s *Service) ensureBaseline(ctx context.Context) error {
	grants := map[string][]string{
		shared.RoleAdmin: shared.AllPermissions(),
		shared.RoleUser:  {shared.PermViewBooks},
	}
	descriptions := map[string]string{
		shared.PermCreateBook:  "Create books",
		shared.PermEditBook:    "Edit books",
		shared.PermDeleteBook:  "Delete books",
		shared.PermViewBooks:   "View the book list",
		shared.PermAdminPanel:  "Access the admin panel",
		shared.PermManageUsers: "Manage user role membership",
		shared.PermManageRoles: "Manage roles and their permissions",
	}
	if err := s.repo.EnsureBaseline(ctx, grants, descriptions); err != nil {
		return fmt.Errorf("rbac: initialize baseline: %w", err)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, userID, roleID int64) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user_role",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"role_id": roleID},
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", action), slog.Any("error", err))
	}
}
