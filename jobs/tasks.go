package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/bookshelf-cms/bookshelf/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPurge removes expired session records from Postgres.
	TaskSessionPurge = "session:purge"
	// TaskAuditPrune trims audit log entries past the retention window.
	TaskAuditPrune = "audit:prune"
)

// AuditPrunePayload carries the retention window for an audit prune run.
type AuditPrunePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewSessionPurgeTask constructs a session purge task. The task carries
// no payload, the purge always removes everything past its expiry.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionPurge, nil)
}

// NewAuditPruneTask constructs an audit prune task.
func NewAuditPruneTask(payload AuditPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditPrune, data), nil
}

// SessionPurger deletes expired session rows and reports the count.
type SessionPurger interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// AuditPruner trims audit entries older than the retention window.
type AuditPruner interface {
	RetainAudit(ctx context.Context, retention time.Duration) (int64, error)
}

// Maintenance bundles the handlers for recurring housekeeping tasks.
type Maintenance struct {
	Sessions  SessionPurger
	Audit     AuditPruner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// HandleSessionPurge processes TaskSessionPurge tasks.
func (m *Maintenance) HandleSessionPurge(ctx context.Context, _ *asynq.Task) error {
	if m.Sessions == nil {
		return asynq.SkipRetry
	}
	tracker := m.Metrics.Track(TaskSessionPurge)
	removed, err := m.Sessions.DeleteExpiredSessions(ctx)
	if err != nil {
		return tracker.End(err)
	}
	m.Metrics.AddRemoved(TaskSessionPurge, removed)
	if m.Logger != nil {
		m.Logger.Info("session purge", slog.Int64("removed", removed))
	}
	return tracker.End(nil)
}

// HandleAuditPrune processes TaskAuditPrune tasks. A payload retention
// overrides the configured default when present.
func (m *Maintenance) HandleAuditPrune(ctx context.Context, t *asynq.Task) error {
	if m.Audit == nil {
		return asynq.SkipRetry
	}
	retention := m.Retention
	if len(t.Payload()) > 0 {
		var payload AuditPrunePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.RetentionHours > 0 {
			retention = time.Duration(payload.RetentionHours) * time.Hour
		}
	}
	if retention <= 0 {
		return asynq.SkipRetry
	}
	tracker := m.Metrics.Track(TaskAuditPrune)
	removed, err := m.Audit.RetainAudit(ctx, retention)
	if err != nil {
		return tracker.End(err)
	}
	m.Metrics.AddRemoved(TaskAuditPrune, removed)
	if m.Logger != nil {
		m.Logger.Info("audit prune", slog.Int64("removed", removed), slog.Duration("retention", retention))
	}
	return tracker.End(nil)
}
