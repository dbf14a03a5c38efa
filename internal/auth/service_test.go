package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

type mockRepo struct {
	usersByHandle map[string]*User
	usersByID     map[int64]*User
	nextID        int64

	createdSessions []string
	deletedSessions []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		usersByHandle: make(map[string]*User),
		usersByID:     make(map[int64]*User),
		nextID:        1,
	}
}

func (m *mockRepo) addUser(handle, email, password string, active bool) *User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &User{
		ID:           m.nextID,
		Handle:       handle,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     active,
	}
	m.nextID++
	m.usersByHandle[handle] = user
	m.usersByID[user.ID] = user
	return user
}

func (m *mockRepo) FindByHandle(ctx context.Context, handle string) (*User, error) {
	user, ok := m.usersByHandle[handle]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (m *mockRepo) CreateUser(ctx context.Context, handle, email, passwordHash string) (*User, error) {
	if _, exists := m.usersByHandle[handle]; exists {
		return nil, shared.ErrDuplicate
	}
	user := &User{ID: m.nextID, Handle: handle, Email: email, PasswordHash: passwordHash, IsActive: true}
	m.nextID++
	m.usersByHandle[handle] = user
	m.usersByID[user.ID] = user
	return user, nil
}

func (m *mockRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	m.createdSessions = append(m.createdSessions, id)
	return nil
}

func (m *mockRepo) DeleteSession(ctx context.Context, id string) error {
	m.deletedSessions = append(m.deletedSessions, id)
	return nil
}

func (m *mockRepo) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (r *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestRegisterStoresHashNotPassword(t *testing.T) {
	repo := newMockRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	user, err := svc.Register(context.Background(), "alice", "alice@test.local", "secret123")
	require.NoError(t, err)
	require.NotNil(t, user)

	stored := repo.usersByHandle["alice"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditActionRegister, audit.logs[0].Action)
}

func TestRegisterDuplicate(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("alice", "alice@test.local", "secret123", true)
	svc := NewService(repo, nil, nil)

	_, err := svc.Register(context.Background(), "alice", "other@test.local", "secret123")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestAuthenticateSuccess(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("alice", "alice@test.local", "secret123", true)
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	user, err := svc.Authenticate(context.Background(), "alice", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Handle)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditActionLoginOK, audit.logs[0].Action)
}

func TestAuthenticateFailuresAreUniform(t *testing.T) {
	repo := newMockRepo()
	repo.addUser("alice", "alice@test.local", "secret123", true)
	repo.addUser("bob", "bob@test.local", "secret123", false)
	svc := NewService(repo, nil, nil)

	cases := []struct {
		name     string
		handle   string
		password string
	}{
		{"unknown handle", "nobody", "secret123"},
		{"wrong password", "alice", "wrongpass"},
		{"deactivated account", "bob", "secret123"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tc.handle, tc.password)
			require.Error(t, err)
			assert.True(t, errors.Is(err, shared.ErrInvalidCredentials))
		})
	}
}

func TestAuthenticateFailureIsAudited(t *testing.T) {
	repo := newMockRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit, nil)

	_, err := svc.Authenticate(context.Background(), "ghost", "whatever")
	require.Error(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, shared.AuditActionLoginFailed, audit.logs[0].Action)
}

func TestResolveInactiveUser(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("bob", "bob@test.local", "secret123", false)
	svc := NewService(repo, nil, nil)

	_, err := svc.Resolve(context.Background(), user.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveActiveUser(t *testing.T) {
	repo := newMockRepo()
	user := repo.addUser("alice", "alice@test.local", "secret123", true)
	svc := NewService(repo, nil, nil)

	resolved, err := svc.Resolve(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, resolved.ID)
}
