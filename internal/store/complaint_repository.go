package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"grievance/internal/grievance"
)

// complaintColumns lists every column in the order grievance.Complaint's db
// tags expect, reused across Get/WithLock/bounding-box/sweep queries so the
// scan target never drifts from the SELECT list.
const complaintColumns = `
	complaint_id, title, description, location, latitude, longitude,
	image_key, image_mime, image_analysis, image_analyzed_at,
	category, priority, ai_reasoning, ai_confidence,
	department_id, staff_id,
	status, filed_at, sla_days_assigned, sla_deadline, resolved_at, closed_at,
	escalation_level, upvote_count, rating, feedback, citizen_id,
	created_at, updated_at, row_version`

// ComplaintRepository is the sqlx-backed implementation of
// complaint.Repository, duplicate.Repository's complaint-table methods, and
// escalation.Repository. All three read/write the same complaints table,
// so one concrete type satisfies all three interfaces structurally.
type ComplaintRepository struct {
	db *sqlx.DB
}

func NewComplaintRepository(db *sqlx.DB) *ComplaintRepository {
	return &ComplaintRepository{db: db}
}

// Insert persists a new complaint and assigns its id.
func (r *ComplaintRepository) Insert(ctx context.Context, c *grievance.Complaint) (int64, error) {
	query := `
		INSERT INTO complaints (
			title, description, location, latitude, longitude,
			image_key, image_mime, image_analysis, image_analyzed_at,
			category, priority, ai_reasoning, ai_confidence,
			department_id, staff_id,
			status, filed_at, sla_days_assigned, sla_deadline, resolved_at, closed_at,
			escalation_level, upvote_count, rating, feedback, citizen_id,
			created_at, row_version
		) VALUES (
			:title, :description, :location, :latitude, :longitude,
			:image_key, :image_mime, :image_analysis, :image_analyzed_at,
			:category, :priority, :ai_reasoning, :ai_confidence,
			:department_id, :staff_id,
			:status, :filed_at, :sla_days_assigned, :sla_deadline, :resolved_at, :closed_at,
			:escalation_level, :upvote_count, :rating, :feedback, :citizen_id,
			:created_at, 1
		)`
	result, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return 0, fmt.Errorf("failed to insert complaint: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get complaint id: %w", err)
	}
	return id, nil
}

// Get loads a complaint by id without locking (read path). Returns
// (nil, nil) on no-rows so the engine layer maps "not found" to its own
// domain error rather than a raw sql error.
func (r *ComplaintRepository) Get(ctx context.Context, complaintID int64) (*grievance.Complaint, error) {
	var c grievance.Complaint
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE complaint_id = ?`
	err := r.db.GetContext(ctx, &c, query, complaintID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get complaint: %w", err)
	}
	return &c, nil
}

// WithLock loads the complaint inside a transaction with SELECT ... FOR
// UPDATE, invokes fn against the in-memory copy, and writes every mutable
// column back in the same transaction iff fn returns nil. All per-complaint
// mutations are serialized through this row lock.
func (r *ComplaintRepository) WithLock(ctx context.Context, complaintID int64, fn func(c *grievance.Complaint) error) (*grievance.Complaint, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var c grievance.Complaint
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE complaint_id = ? FOR UPDATE`
	if err := tx.GetContext(ctx, &c, query, complaintID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, grievance.NewError(grievance.KindNotFound, "complaint not found", "")
		}
		return nil, fmt.Errorf("failed to lock complaint: %w", err)
	}

	if err := fn(&c); err != nil {
		return nil, err
	}

	update := `
		UPDATE complaints SET
			title = :title, description = :description, location = :location,
			latitude = :latitude, longitude = :longitude,
			image_key = :image_key, image_mime = :image_mime,
			image_analysis = :image_analysis, image_analyzed_at = :image_analyzed_at,
			category = :category, priority = :priority,
			ai_reasoning = :ai_reasoning, ai_confidence = :ai_confidence,
			department_id = :department_id, staff_id = :staff_id,
			status = :status, filed_at = :filed_at, sla_days_assigned = :sla_days_assigned,
			sla_deadline = :sla_deadline, resolved_at = :resolved_at, closed_at = :closed_at,
			escalation_level = :escalation_level, upvote_count = :upvote_count,
			rating = :rating, feedback = :feedback, citizen_id = :citizen_id,
			updated_at = :updated_at, row_version = row_version + 1
		WHERE complaint_id = :complaint_id`
	if _, err := tx.NamedExecContext(ctx, update, &c); err != nil {
		return nil, fmt.Errorf("failed to persist complaint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit complaint update: %w", err)
	}
	c.RowVersion++
	return &c, nil
}

// StaffBelongsToDepartment checks department membership before an assignment
// is allowed to proceed.
func (r *ComplaintRepository) StaffBelongsToDepartment(ctx context.Context, staffID, departmentID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM staff WHERE staff_id = ? AND department_id = ?`, staffID, departmentID)
	if err != nil {
		return false, fmt.Errorf("failed to verify staff department: %w", err)
	}
	return count > 0, nil
}

// DepartmentForCategory resolves the department that owns a category, via
// the seeded category_department_routing table (master data this service
// reads but does not manage).
func (r *ComplaintRepository) DepartmentForCategory(ctx context.Context, category grievance.Category) (int64, bool, error) {
	var departmentID int64
	err := r.db.GetContext(ctx, &departmentID, `SELECT department_id FROM category_department_routing WHERE category = ?`, category)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve department for category: %w", err)
	}
	return departmentID, true, nil
}

// CandidatesInBoundingBox prefilters candidates for the duplicate resolver
// by a lat/lng bounding box and a status set. The box keeps the SQL cheap;
// the resolver trims it back to a circle with the haversine distance.
func (r *ComplaintRepository) CandidatesInBoundingBox(ctx context.Context, latMin, latMax, lngMin, lngMax float64, statuses []grievance.Status) ([]grievance.Complaint, error) {
	query, args, err := sqlx.In(`
		SELECT `+complaintColumns+` FROM complaints
		WHERE latitude BETWEEN ? AND ?
		AND longitude BETWEEN ? AND ?
		AND status IN (?)`,
		latMin, latMax, lngMin, lngMax, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build bounding box query: %w", err)
	}
	query = r.db.Rebind(query)
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query duplicate candidates: %w", err)
	}
	return out, nil
}

// GetComplaint is the duplicate resolver's thin read, identical to Get but
// declared separately on the duplicate.Repository interface so that package
// does not depend on complaint.Repository's broader surface.
func (r *ComplaintRepository) GetComplaint(ctx context.Context, complaintID int64) (*grievance.Complaint, error) {
	return r.Get(ctx, complaintID)
}

// HasUpvote reports whether citizenID already upvoted complaintID (the
// unique constraint on (complaint_id, citizen_id) backs this at the DB
// level too; this is the pre-check so Upvote can return a clean
// already-exists result instead of relying on a constraint-violation error).
func (r *ComplaintRepository) HasUpvote(ctx context.Context, complaintID, citizenID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM upvotes WHERE complaint_id = ? AND citizen_id = ?`, complaintID, citizenID)
	if err != nil {
		return false, fmt.Errorf("failed to check upvote: %w", err)
	}
	return count > 0, nil
}

// InsertUpvote records a new upvote and returns the complaint's new total,
// both inside one transaction so the counter never drifts from the child
// rows.
func (r *ComplaintRepository) InsertUpvote(ctx context.Context, upvote *grievance.Upvote) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO upvotes (complaint_id, citizen_id, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		upvote.ComplaintID, upvote.CitizenID, upvote.Latitude, upvote.Longitude, upvote.CreatedAt); err != nil {
		return 0, fmt.Errorf("failed to insert upvote: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE complaints SET upvote_count = upvote_count + 1 WHERE complaint_id = ?`, upvote.ComplaintID); err != nil {
		return 0, fmt.Errorf("failed to increment upvote count: %w", err)
	}
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT upvote_count FROM complaints WHERE complaint_id = ?`, upvote.ComplaintID); err != nil {
		return 0, fmt.Errorf("failed to read upvote count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit upvote: %w", err)
	}
	return count, nil
}

// RemoveUpvote withdraws a citizen's upvote; existed is false (no error) if
// there was nothing to remove, the symmetric idempotent counterpart to
// InsertUpvote's already-exists handling.
func (r *ComplaintRepository) RemoveUpvote(ctx context.Context, complaintID, citizenID int64) (int, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM upvotes WHERE complaint_id = ? AND citizen_id = ?`, complaintID, citizenID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to delete upvote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return 0, false, tx.Commit()
	}
	if _, err := tx.ExecContext(ctx, `UPDATE complaints SET upvote_count = GREATEST(upvote_count - 1, 0) WHERE complaint_id = ?`, complaintID); err != nil {
		return 0, false, fmt.Errorf("failed to decrement upvote count: %w", err)
	}
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT upvote_count FROM complaints WHERE complaint_id = ?`, complaintID); err != nil {
		return 0, false, fmt.Errorf("failed to read upvote count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit upvote removal: %w", err)
	}
	return count, true, nil
}

// UpvoteCount reads a complaint's current total without a lock.
func (r *ComplaintRepository) UpvoteCount(ctx context.Context, complaintID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT upvote_count FROM complaints WHERE complaint_id = ?`, complaintID)
	if err != nil {
		return 0, fmt.Errorf("failed to read upvote count: %w", err)
	}
	return count, nil
}

// Nearby lists FILED and IN_PROGRESS complaints within the bounding box, newest
// first, for the community map view.
func (r *ComplaintRepository) Nearby(ctx context.Context, latMin, latMax, lngMin, lngMax float64, limit int) ([]grievance.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?
		AND status IN ('FILED', 'IN_PROGRESS')
		ORDER BY created_at DESC
		LIMIT ?`
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, latMin, latMax, lngMin, lngMax, limit); err != nil {
		return nil, fmt.Errorf("failed to query nearby complaints: %w", err)
	}
	return out, nil
}

// Trending lists the highest-upvoted FILED and IN_PROGRESS complaints, for the
// community "trending" view.
func (r *ComplaintRepository) Trending(ctx context.Context, limit int) ([]grievance.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE status IN ('FILED', 'IN_PROGRESS')
		ORDER BY upvote_count DESC, created_at DESC
		LIMIT ?`
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query trending complaints: %w", err)
	}
	return out, nil
}

// OverdueInProgress lists IN_PROGRESS complaints past their SLA deadline as
// of asOf: the escalation sweep's candidate set (the sweep itself skips
// terminal level-2 rows) and the overdue/stats read queries.
func (r *ComplaintRepository) OverdueInProgress(ctx context.Context, asOf time.Time) ([]grievance.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE status = 'IN_PROGRESS' AND sla_deadline < ?`
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, asOf); err != nil {
		return nil, fmt.Errorf("failed to query overdue complaints: %w", err)
	}
	return out, nil
}

// ResolvedOlderThan lists RESOLVED complaints whose resolvedAt precedes
// cutoff: the auto-close-after-signoff-window candidate set.
func (r *ComplaintRepository) ResolvedOlderThan(ctx context.Context, cutoff time.Time) ([]grievance.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE status = 'RESOLVED' AND resolved_at IS NOT NULL AND resolved_at < ?`
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to query aged resolved complaints: %w", err)
	}
	return out, nil
}

// FiledOlderThan lists FILED complaints stuck past the intake-stall
// threshold: the stale-intake warning candidate set.
func (r *ComplaintRepository) FiledOlderThan(ctx context.Context, cutoff time.Time) ([]grievance.Complaint, error) {
	query := `
		SELECT ` + complaintColumns + ` FROM complaints
		WHERE status = 'FILED' AND filed_at < ?`
	var out []grievance.Complaint
	if err := r.db.SelectContext(ctx, &out, query, cutoff); err != nil {
		return nil, fmt.Errorf("failed to query stale filed complaints: %w", err)
	}
	return out, nil
}
