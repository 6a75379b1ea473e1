package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grievance/internal/grievance"
)

// ProofRepository is the sqlx-backed implementation of proof.Repository:
// write-once proof rows plus the signoff/dispute tables. Proofs and
// signoffs are appended, never rewritten; only a dispute's adjudication
// status moves.
type ProofRepository struct {
	db *sqlx.DB
}

func NewProofRepository(db *sqlx.DB) *ProofRepository {
	return &ProofRepository{db: db}
}

const proofColumns = `proof_id, complaint_id, author_staff_id, image_key, captured_lat, captured_lng, captured_at, remarks, submitted_at, verified, integrity_hash`

func (r *ProofRepository) InsertProof(ctx context.Context, p *grievance.ResolutionProof) (int64, error) {
	query := `
		INSERT INTO resolution_proofs (
			complaint_id, author_staff_id, image_key, captured_lat, captured_lng,
			captured_at, remarks, submitted_at, verified, integrity_hash
		) VALUES (
			:complaint_id, :author_staff_id, :image_key, :captured_lat, :captured_lng,
			:captured_at, :remarks, :submitted_at, :verified, :integrity_hash
		)`
	result, err := r.db.NamedExecContext(ctx, query, p)
	if err != nil {
		return 0, fmt.Errorf("failed to insert resolution proof: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get proof id: %w", err)
	}
	return id, nil
}

func (r *ProofRepository) ProofsByComplaint(ctx context.Context, complaintID int64) ([]grievance.ResolutionProof, error) {
	var out []grievance.ResolutionProof
	query := `SELECT ` + proofColumns + ` FROM resolution_proofs WHERE complaint_id = ? ORDER BY submitted_at ASC`
	if err := r.db.SelectContext(ctx, &out, query, complaintID); err != nil {
		return nil, fmt.Errorf("failed to query resolution proofs: %w", err)
	}
	return out, nil
}

func (r *ProofRepository) HasProof(ctx context.Context, complaintID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM resolution_proofs WHERE complaint_id = ?`, complaintID)
	if err != nil {
		return false, fmt.Errorf("failed to check resolution proof: %w", err)
	}
	return count > 0, nil
}

const signoffColumns = `signoff_id, complaint_id, kind, citizen_id, rating, feedback, dispute_reason, counter_proof_image_key, dispute_status, active, created_at`

func (r *ProofRepository) InsertSignoff(ctx context.Context, s *grievance.CitizenSignoff) (int64, error) {
	query := `
		INSERT INTO citizen_signoffs (
			complaint_id, kind, citizen_id, rating, feedback,
			dispute_reason, counter_proof_image_key, dispute_status, active, created_at
		) VALUES (
			:complaint_id, :kind, :citizen_id, :rating, :feedback,
			:dispute_reason, :counter_proof_image_key, :dispute_status, :active, :created_at
		)`
	result, err := r.db.NamedExecContext(ctx, query, s)
	if err != nil {
		return 0, fmt.Errorf("failed to insert citizen signoff: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get signoff id: %w", err)
	}
	return id, nil
}

// ActiveSignoff returns the one signoff row currently marked active for a
// complaint (at most one by construction), or nil if none exists.
func (r *ProofRepository) ActiveSignoff(ctx context.Context, complaintID int64) (*grievance.CitizenSignoff, error) {
	var s grievance.CitizenSignoff
	query := `SELECT ` + signoffColumns + ` FROM citizen_signoffs WHERE complaint_id = ? AND active = TRUE LIMIT 1`
	err := r.db.GetContext(ctx, &s, query, complaintID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active signoff: %w", err)
	}
	return &s, nil
}

func (r *ProofRepository) GetSignoff(ctx context.Context, signoffID int64) (*grievance.CitizenSignoff, error) {
	var s grievance.CitizenSignoff
	query := `SELECT ` + signoffColumns + ` FROM citizen_signoffs WHERE signoff_id = ?`
	err := r.db.GetContext(ctx, &s, query, signoffID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get signoff: %w", err)
	}
	return &s, nil
}

// UpdateDisputeStatus moves a PENDING dispute signoff to APPROVED/REJECTED.
// Adjudication always deactivates the row: a rejected dispute lets the
// citizen sign off again, and an approved one re-opens the complaint for a
// fresh resolve/signoff cycle, so neither may keep blocking ActiveSignoff.
func (r *ProofRepository) UpdateDisputeStatus(ctx context.Context, signoffID int64, status grievance.DisputeStatus) error {
	_, err := r.db.ExecContext(ctx, `UPDATE citizen_signoffs SET dispute_status = ?, active = FALSE WHERE signoff_id = ?`, status, signoffID)
	if err != nil {
		return fmt.Errorf("failed to update dispute status: %w", err)
	}
	return nil
}
