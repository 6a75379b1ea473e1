package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"grievance/internal/grievance"
)

// NotifyRepository is the sqlx-backed implementation of notify.Repository:
// the in-app inbox table plus the recipient-channel lookup.
type NotifyRepository struct {
	db *sqlx.DB
}

func NewNotifyRepository(db *sqlx.DB) *NotifyRepository {
	return &NotifyRepository{db: db}
}

func (r *NotifyRepository) Insert(ctx context.Context, n *grievance.Notification) (int64, error) {
	query := `
		INSERT INTO notifications (
			recipient_id, type, title, message, complaint_ref, read_flag, created_at
		) VALUES (
			:recipient_id, :type, :title, :message, :complaint_ref, FALSE, :created_at
		)`
	result, err := r.db.NamedExecContext(ctx, query, n)
	if err != nil {
		return 0, fmt.Errorf("failed to insert notification: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get notification id: %w", err)
	}
	return id, nil
}

// HasMessagingChannel reports whether recipientID has a verified outbound
// channel the notify dispatcher can reach; unverified users get the in-app
// entry only.
func (r *NotifyRepository) HasMessagingChannel(ctx context.Context, recipientID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM users WHERE user_id = ? AND phone_verified_at IS NOT NULL`, recipientID)
	if err != nil {
		return false, fmt.Errorf("failed to check messaging channel: %w", err)
	}
	return count > 0, nil
}
