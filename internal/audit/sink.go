// Package audit implements the append-only audit log. Every mutating
// component calls Sink.Record at the end of a successful mutation; no update
// or delete path exists anywhere in this package.
package audit

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog/log"

	"grievance/internal/actor"
	"grievance/internal/grievance"
	"grievance/internal/metrics"
)

// auditValueTruncateLen bounds the old/new value strings written to log
// lines. The stored row keeps the verbatim payload; only the log line is
// truncated.
const auditValueTruncateLen = 2000

// Repository is the persistence surface audit.Sink needs. A *sqlx.DB-backed
// implementation lives in internal/store; an in-memory one lives in
// internal/store/fake for tests. Defined here (not imported from store) so
// store satisfies it structurally with no import cycle.
type Repository interface {
	// InsertIndependent persists ev in its own transaction/connection,
	// independent of any transaction the caller might be in, so the audit
	// record survives even if the caller's transaction later rolls back.
	InsertIndependent(ctx context.Context, ev *grievance.AuditEvent) error
	ByEntity(ctx context.Context, entityType, entityID string) ([]grievance.AuditEvent, error)
	ByAction(ctx context.Context, action grievance.AuditAction) ([]grievance.AuditEvent, error)
	ByActor(ctx context.Context, actorID int64) ([]grievance.AuditEvent, error)
	Recent(ctx context.Context, limit int) ([]grievance.AuditEvent, error)
}

// Sink is the single entry point for writing audit records.
type Sink struct {
	repo    Repository
	clock   interface{ Now() time.Time }
	metrics *metrics.Metrics // nil-safe: tests construct a Sink without metrics
}

func New(repo Repository, clock interface{ Now() time.Time }, m *metrics.Metrics) *Sink {
	return &Sink{repo: repo, clock: clock, metrics: m}
}

// Record appends one immutable audit event. It never returns a "rolled back"
// error to the caller for anything other than the audit write itself
// failing. Audit failures are logged and swallowed by convention at call
// sites that must not fail the originating operation (see internal/complaint
// and internal/escalation).
func (s *Sink) Record(ctx context.Context, entityType, entityID string, action grievance.AuditAction, oldValue, newValue *string, a actor.Context, reason string) (*grievance.AuditEvent, error) {
	ev := &grievance.AuditEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		CreatedAt:  s.clock.Now(),
	}
	if oldValue != nil {
		ev.OldValue = sql.NullString{String: *oldValue, Valid: true}
	}
	if newValue != nil {
		ev.NewValue = sql.NullString{String: *newValue, Valid: true}
	}
	if reason != "" {
		ev.Reason = sql.NullString{String: reason, Valid: true}
	}
	if a.IsSystem() {
		ev.ActorType = grievance.ActorKindSystem
	} else {
		ev.ActorType = grievance.ActorKindUser
		ev.ActorID = sql.NullInt64{Int64: a.UserID, Valid: true}
	}

	if err := s.repo.InsertIndependent(ctx, ev); err != nil {
		log.Error().Err(err).Str("entity_type", entityType).Str("entity_id", entityID).
			Str("action", string(action)).Msg("audit write failed")
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist audit event", err)
	}
	log.Info().
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("action", string(action)).
		Str("old", truncate(ev.OldValue)).
		Str("new", truncate(ev.NewValue)).
		Str("actor_type", string(ev.ActorType)).
		Msg("audit event recorded")
	if s.metrics != nil {
		s.metrics.AuditEvents.WithLabelValues(string(action)).Inc()
	}
	return ev, nil
}

func truncate(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	s := v.String
	if len(s) > auditValueTruncateLen {
		return s[:auditValueTruncateLen]
	}
	return s
}

// ByEntity returns every audit event for one entity, chronological
// ascending, the natural read for GET /audit/complaint/{id}.
func (s *Sink) ByEntity(ctx context.Context, entityType, entityID string) ([]grievance.AuditEvent, error) {
	return s.repo.ByEntity(ctx, entityType, entityID)
}

// ByAction returns every audit event for one action kind.
func (s *Sink) ByAction(ctx context.Context, action grievance.AuditAction) ([]grievance.AuditEvent, error) {
	return s.repo.ByAction(ctx, action)
}

// ByActor returns every audit event recorded for one actor id.
func (s *Sink) ByActor(ctx context.Context, actorID int64) ([]grievance.AuditEvent, error) {
	return s.repo.ByActor(ctx, actorID)
}

// Recent returns the most recent audit events up to limit.
func (s *Sink) Recent(ctx context.Context, limit int) ([]grievance.AuditEvent, error) {
	return s.repo.Recent(ctx, limit)
}
