package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grievance/internal/grievance"
)

// AuditRepository is the sqlx-backed implementation of audit.Repository.
// Insert-only: no UPDATE or DELETE statement appears in this file.
type AuditRepository struct {
	db *sqlx.DB
}

func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// InsertIndependent opens its own connection (not a caller's transaction) so
// an audit write survives even if the originating mutation later rolls back.
// The log captures attempts, not only successes.
func (r *AuditRepository) InsertIndependent(ctx context.Context, ev *grievance.AuditEvent) error {
	query := `
		INSERT INTO audit_events (
			entity_type, entity_id, action, old_value, new_value,
			actor_type, actor_id, reason, created_at
		) VALUES (
			:entity_type, :entity_id, :action, :old_value, :new_value,
			:actor_type, :actor_id, :reason, :created_at
		)`
	result, err := r.db.NamedExecContext(ctx, query, ev)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get audit event id: %w", err)
	}
	ev.EventID = id
	return nil
}

const auditColumns = `event_id, entity_type, entity_id, action, old_value, new_value, actor_type, actor_id, reason, created_at`

// ByEntity orders chronological ascending: oldest decision first, matching
// how a reviewer replays a complaint's history.
func (r *AuditRepository) ByEntity(ctx context.Context, entityType, entityID string) ([]grievance.AuditEvent, error) {
	var out []grievance.AuditEvent
	query := `SELECT ` + auditColumns + ` FROM audit_events WHERE entity_type = ? AND entity_id = ? ORDER BY created_at ASC, event_id ASC`
	if err := r.db.SelectContext(ctx, &out, query, entityType, entityID); err != nil {
		return nil, fmt.Errorf("failed to query audit events by entity: %w", err)
	}
	return out, nil
}

func (r *AuditRepository) ByAction(ctx context.Context, action grievance.AuditAction) ([]grievance.AuditEvent, error) {
	var out []grievance.AuditEvent
	query := `SELECT ` + auditColumns + ` FROM audit_events WHERE action = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, action); err != nil {
		return nil, fmt.Errorf("failed to query audit events by action: %w", err)
	}
	return out, nil
}

func (r *AuditRepository) ByActor(ctx context.Context, actorID int64) ([]grievance.AuditEvent, error) {
	var out []grievance.AuditEvent
	query := `SELECT ` + auditColumns + ` FROM audit_events WHERE actor_id = ? ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &out, query, actorID); err != nil {
		return nil, fmt.Errorf("failed to query audit events by actor: %w", err)
	}
	return out, nil
}

func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]grievance.AuditEvent, error) {
	var out []grievance.AuditEvent
	query := `SELECT ` + auditColumns + ` FROM audit_events ORDER BY created_at DESC LIMIT ?`
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query recent audit events: %w", err)
	}
	return out, nil
}
