package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// MasterDataRepository resolves the recipient ids the complaint engine and
// escalation scheduler need for notifications: department heads, the
// municipal commissioner, and any on-duty admin. Master data this service
// reads but never writes; the staff directory is managed elsewhere.
type MasterDataRepository struct {
	db *sqlx.DB
}

func NewMasterDataRepository(db *sqlx.DB) *MasterDataRepository {
	return &MasterDataRepository{db: db}
}

func (r *MasterDataRepository) DepartmentHeadID(ctx context.Context, departmentID int64) (int64, bool, error) {
	var staffID int64
	err := r.db.GetContext(ctx, &staffID, `SELECT staff_id FROM staff WHERE department_id = ? AND role = 'DEPT_HEAD' LIMIT 1`, departmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve department head: %w", err)
	}
	return staffID, true, nil
}

func (r *MasterDataRepository) CommissionerID(ctx context.Context) (int64, bool, error) {
	var staffID int64
	err := r.db.GetContext(ctx, &staffID, `SELECT staff_id FROM staff WHERE role = 'MUNICIPAL_COMMISSIONER' LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve commissioner: %w", err)
	}
	return staffID, true, nil
}

func (r *MasterDataRepository) AdminID(ctx context.Context) (int64, bool, error) {
	var staffID int64
	err := r.db.GetContext(ctx, &staffID, `SELECT staff_id FROM staff WHERE role = 'ADMIN' ORDER BY staff_id LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to resolve admin: %w", err)
	}
	return staffID, true, nil
}
