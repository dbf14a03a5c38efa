package shared

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Auth-related audit actions.
const (
	AuditActionRegister    = "auth.register"
	AuditActionLoginOK     = "auth.login"
	AuditActionLoginFailed = "auth.login_failed"
	AuditActionLogout      = "auth.logout"
	AuditActionRoleAssign  = "rbac.role_assign"
	AuditActionRoleRemove  = "rbac.role_remove"
)

// AuditLog represents a record stored in audit_logs.
type AuditLog struct {
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// OccurredAt returns the entry timestamp, substituting the current time
// when the caller left At unset. A zero time must never reach the table:
// it sorts before every retention cutoff and the prune job would delete
// the row immediately.
func (l AuditLog) OccurredAt() time.Time {
	if l.At.IsZero() {
		return time.Now()
	}
	return l.At
}

// AuditRecorder is the narrow sink handed to services that need to leave
// a trail. Failed and successful logins both go through it.
type AuditRecorder interface {
	Record(ctx context.Context, log AuditLog) error
}

// AuditLogger writes records into audit_logs.
type AuditLogger struct {
	pool *pgxpool.Pool
}

// NewAuditLogger returns a new AuditLogger.
func NewAuditLogger(pool *pgxpool.Pool) *AuditLogger {
	return &AuditLogger{pool: pool}
}

// Record persists the log entry.
func (l *AuditLogger) Record(ctx context.Context, log AuditLog) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	metaJSON, err := json.Marshal(log.Meta)
	if err != nil {
		return err
	}
	_, err = l.pool.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at) VALUES ($1, $2, $3, $4, $5, $6)`, log.ActorID, log.Action, log.Entity, log.EntityID, metaJSON, log.OccurredAt().UTC())
	return err
}

// RetainAudit deletes audit rows older than the retention window.
func (l *AuditLogger) RetainAudit(ctx context.Context, retention time.Duration) (int64, error) {
	if l == nil {
		return 0, errors.New("audit logger not initialised")
	}
	tag, err := l.pool.Exec(ctx, `DELETE FROM audit_logs WHERE occurred_at < $1`, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ AuditRecorder = (*AuditLogger)(nil)
