package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bookshelf-cms/bookshelf/internal/shared"
)

// Service wraps registration and credential verification rules.
type Service struct {
	repo   Repository
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs a new Service. audit may be nil in tests.
func NewService(repo Repository, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Register creates a new account. Handle/email conflicts surface as
// shared.ErrDuplicate; on success only the bcrypt hash is stored and the
// default role is attached when the baseline has been seeded.
func (s *Service) Register(ctx context.Context, handle, email, rawPassword string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.CreateUser(ctx, handle, email, string(hash))
	if err != nil {
		return nil, err
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  user.ID,
		Action:   shared.AuditActionRegister,
		Entity:   "user",
		EntityID: strconv.FormatInt(user.ID, 10),
		Meta:     map[string]any{"handle": user.Handle},
	})
	return user, nil
}

// Authenticate validates handle/password credentials. An unknown handle,
// a deactivated account and a wrong password all yield the exact same
// shared.ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, handle, rawPassword string) (*User, error) {
	user, err := s.repo.FindByHandle(ctx, handle)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("lookup user", slog.Any("error", err))
		}
		s.recordLoginFailure(ctx, handle)
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordLoginFailure(ctx, handle)
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(rawPassword)); err != nil {
		s.recordLoginFailure(ctx, handle)
		return nil, shared.ErrInvalidCredentials
	}
	s.record(ctx, shared.AuditLog{
		ActorID:  user.ID,
		Action:   shared.AuditActionLoginOK,
		Entity:   "user",
		EntityID: strconv.FormatInt(user.ID, 10),
	})
	return user, nil
}

// Resolve loads the account a session claims to belong to. A stale
// reference (row deleted or deactivated) resolves to shared.ErrNotFound
// so the caller degrades to anonymous instead of trusting the cookie.
func (s *Service) Resolve(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

// RecordLogout leaves a trail entry for a completed logout.
func (s *Service) RecordLogout(ctx context.Context, userID int64) {
	s.record(ctx, shared.AuditLog{
		ActorID:  userID,
		Action:   shared.AuditActionLogout,
		Entity:   "user",
		EntityID: strconv.FormatInt(userID, 10),
	})
}

// RegisterSession persists the session metadata in postgres.
func (s *Service) RegisterSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	return s.repo.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// RemoveSession deletes a session record from postgres.
func (s *Service) RemoveSession(ctx context.Context, id string) error {
	return s.repo.DeleteSession(ctx, id)
}

func (s *Service) record(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit record", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) recordLoginFailure(ctx context.Context, handle string) {
	s.record(ctx, shared.AuditLog{
		Action:   shared.AuditActionLoginFailed,
		Entity:   "user",
		EntityID: handle,
	})
}
