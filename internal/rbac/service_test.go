package rbac

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

type mockRepository struct {
	mu sync.Mutex

	roles       map[int64]Role
	rolePerms   map[int64][]int64
	permissions map[int64]Permission
	userRoles   map[int64]map[int64]struct{}
	nextRoleID  int64

	baselineCalls  int
	baselineGrants map[string][]string
	baselineErr    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:       make(map[int64]Role),
		rolePerms:   make(map[int64][]int64),
		permissions: make(map[int64]Permission),
		userRoles:   make(map[int64]map[int64]struct{}),
		nextRoleID:  1,
	}
}

func (m *mockRepository) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepository) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	return nil, nil
}

func (m *mockRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *mockRepository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return Role{}, shared.ErrNotFound
}

func (m *mockRepository) CreateRole(ctx context.Context, name, description string, permissionIDs []int64) (Role, error) {
	for _, r := range m.roles {
		if r.Name == name {
			return Role{}, shared.ErrDuplicate
		}
	}
	role := Role{ID: m.nextRoleID, Name: name, Description: description}
	m.nextRoleID++
	m.roles[role.ID] = role
	m.rolePerms[role.ID] = permissionIDs
	return role, nil
}

func (m *mockRepository) UpdateRole(ctx context.Context, id int64, name, description string, permissionIDs []int64) (Role, error) {
	role, ok := m.roles[id]
	if !ok {
		return Role{}, shared.ErrNotFound
	}
	role.Name = name
	role.Description = description
	m.roles[id] = role
	m.rolePerms[id] = permissionIDs
	return role, nil
}

func (m *mockRepository) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	for _, assigned := range m.userRoles {
		delete(assigned, id)
	}
	return nil
}

func (m *mockRepository) RolePermissions(ctx context.Context, roleID int64) ([]Permission, error) {
	return nil, nil
}

func (m *mockRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(m.permissions))
	for _, p := range m.permissions {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	if m.userRoles[userID] == nil {
		m.userRoles[userID] = make(map[int64]struct{})
	}
	m.userRoles[userID][roleID] = struct{}{}
	return nil
}

func (m *mockRepository) RemoveRole(ctx context.Context, userID, roleID int64) error {
	delete(m.userRoles[userID], roleID)
	return nil
}

func (m *mockRepository) HasRole(ctx context.Context, userID int64, roleName string) (bool, error) {
	for roleID := range m.userRoles[userID] {
		if m.roles[roleID].Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) HasPermission(ctx context.Context, userID int64, permissionName string) (bool, error) {
	perms, err := m.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == permissionName {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for roleID := range m.userRoles[userID] {
		for _, permID := range m.rolePerms[roleID] {
			name := m.permissions[permID].Name
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out, nil
}

func (m *mockRepository) ListMembers(ctx context.Context) ([]Member, error) {
	return nil, nil
}

func (m *mockRepository) EnsureBaseline(ctx context.Context, grants map[string][]string, descriptions map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baselineCalls++
	m.baselineGrants = grants
	return m.baselineErr
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestCreateRoleRequiresPermissions(t *testing.T) {
	svc := NewService(newMockRepository(), nil, nil)

	_, err := svc.CreateRole(context.Background(), "editors", "", nil)
	assert.ErrorIs(t, err, ErrNoPermissions)

	_, err = svc.CreateRole(context.Background(), "   ", "", []int64{1})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoPermissions)
}

func TestUpdateRoleRequiresPermissions(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)
	role, err := svc.CreateRole(context.Background(), "editors", "", []int64{1})
	require.NoError(t, err)

	_, err = svc.UpdateRole(context.Background(), role.ID, "editors", "", nil)
	assert.ErrorIs(t, err, ErrNoPermissions)
}

func TestAssignAndRemoveRoleAreAudited(t *testing.T) {
	repo := newMockRepository()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	role, err := svc.CreateRole(context.Background(), "editors", "", []int64{1})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), 7, 42, role.ID))
	has, err := svc.HasRole(context.Background(), 42, "editors")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, svc.RemoveRole(context.Background(), 7, 42, role.ID))
	has, err = svc.HasRole(context.Background(), 42, "editors")
	require.NoError(t, err)
	assert.False(t, has)

	require.Len(t, audit.logs, 2)
	assert.Equal(t, shared.AuditActionRoleAssign, audit.logs[0].Action)
	assert.Equal(t, int64(7), audit.logs[0].ActorID)
	assert.Equal(t, shared.AuditActionRoleRemove, audit.logs[1].Action)
}

func TestEnsureBaselineGrants(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	require.NoError(t, svc.EnsureBaseline(context.Background()))
	require.Equal(t, 1, repo.baselineCalls)

	adminGrants := repo.baselineGrants[shared.RoleAdmin]
	assert.ElementsMatch(t, shared.AllPermissions(), adminGrants)
	assert.Equal(t, []string{shared.PermViewBooks}, repo.baselineGrants[shared.RoleUser])
}

func TestEnsureBaselineWrapsRepositoryError(t *testing.T) {
	repo := newMockRepository()
	repo.baselineErr = assert.AnError
	svc := NewService(repo, nil, nil)

	err := svc.EnsureBaseline(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "initialize baseline")
}

func TestEffectivePermissionsFollowRoleChanges(t *testing.T) {
	repo := newMockRepository()
	repo.permissions[1] = Permission{ID: 1, Name: shared.PermViewBooks}
	repo.permissions[2] = Permission{ID: 2, Name: shared.PermCreateBook}
	svc := NewService(repo, nil, nil)

	readers, err := svc.CreateRole(context.Background(), "readers", "", []int64{1})
	require.NoError(t, err)
	writers, err := svc.CreateRole(context.Background(), "writers", "", []int64{1, 2})
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, readers.ID))
	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, writers.ID))

	perms, err := svc.EffectivePermissions(context.Background(), 42)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{shared.PermViewBooks, shared.PermCreateBook}, perms)

	has, err := svc.HasPermission(context.Background(), 42, shared.PermCreateBook)
	require.NoError(t, err)
	assert.True(t, has)

	// Revoking the role is visible on the very next check.
	require.NoError(t, svc.RemoveRole(context.Background(), 1, 42, writers.ID))
	has, err = svc.HasPermission(context.Background(), 42, shared.PermCreateBook)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDeleteRoleDetachesMembers(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo, nil, nil)

	role, err := svc.CreateRole(context.Background(), "editors", "", []int64{1})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(context.Background(), 1, 42, role.ID))

	require.NoError(t, svc.DeleteRole(context.Background(), role.ID))

	has, err := svc.HasRole(context.Background(), 42, "editors")
	require.NoError(t, err)
	assert.False(t, has)
}
