package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

type stubPruner struct {
	removed   int64
	err       error
	retention time.Duration
	calls     int
}

func (s *stubPruner) RetainAudit(ctx context.Context, retention time.Duration) (int64, error) {
	s.calls++
	s.retention = retention
	return s.removed, s.err
}

func TestHandleSessionPurge(t *testing.T) {
	purger := &stubPurger{removed: 12}
	m := &Maintenance{Sessions: purger}

	err := m.HandleSessionPurge(context.Background(), NewSessionPurgeTask())
	require.NoError(t, err)
	assert.Equal(t, 1, purger.calls)
}

func TestHandleSessionPurgePropagatesError(t *testing.T) {
	purger := &stubPurger{err: assert.AnError}
	m := &Maintenance{Sessions: purger}

	err := m.HandleSessionPurge(context.Background(), NewSessionPurgeTask())
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSessionPurgeWithoutPurgerSkipsRetry(t *testing.T) {
	m := &Maintenance{}

	err := m.HandleSessionPurge(context.Background(), NewSessionPurgeTask())
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAuditPruneUsesConfiguredRetention(t *testing.T) {
	pruner := &stubPruner{removed: 3}
	m := &Maintenance{Audit: pruner, Retention: 48 * time.Hour}

	task, err := NewAuditPruneTask(AuditPrunePayload{})
	require.NoError(t, err)

	require.NoError(t, m.HandleAuditPrune(context.Background(), task))
	assert.Equal(t, 48*time.Hour, pruner.retention)
}

func TestHandleAuditPrunePayloadOverridesRetention(t *testing.T) {
	pruner := &stubPruner{}
	m := &Maintenance{Audit: pruner, Retention: 48 * time.Hour}

	task, err := NewAuditPruneTask(AuditPrunePayload{RetentionHours: 6})
	require.NoError(t, err)

	require.NoError(t, m.HandleAuditPrune(context.Background(), task))
	assert.Equal(t, 6*time.Hour, pruner.retention)
}

func TestHandleAuditPruneSkipsRetry(t *testing.T) {
	tests := []struct {
		name string
		m    *Maintenance
		task *asynq.Task
	}{
		{"no pruner", &Maintenance{}, asynq.NewTask(TaskAuditPrune, nil)},
		{"corrupt payload", &Maintenance{Audit: &stubPruner{}, Retention: time.Hour}, asynq.NewTask(TaskAuditPrune, []byte("{not json"))},
		{"no retention", &Maintenance{Audit: &stubPruner{}}, asynq.NewTask(TaskAuditPrune, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.HandleAuditPrune(context.Background(), tt.task)
			assert.ErrorIs(t, err, asynq.SkipRetry)
		})
	}
}

func TestHandleAuditPrunePropagatesError(t *testing.T) {
	pruner := &stubPruner{err: errors.New("pg down")}
	m := &Maintenance{Audit: pruner, Retention: time.Hour}

	err := m.HandleAuditPrune(context.Background(), asynq.NewTask(TaskAuditPrune, nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}
