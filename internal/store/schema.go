package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// InitializeSchema ensures every table the store package queries exists,
// creating only what's missing, never dropping or altering existing
// tables. Column names follow the db tags on grievance.Complaint et al.
// exactly, so the sqlx Select/Get calls in this package scan cleanly
// against a freshly created database.
func InitializeSchema(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	log.Info().Msg("database schema verified")
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS departments (
		department_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS staff (
		staff_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		department_id BIGINT NULL,
		role VARCHAR(50) NOT NULL,
		full_name VARCHAR(255) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_staff_department (department_id),
		INDEX idx_staff_role (role)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS category_department_routing (
		category VARCHAR(50) PRIMARY KEY,
		department_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		phone_number VARCHAR(15) UNIQUE NOT NULL,
		phone_verified_at TIMESTAMP NULL,
		full_name VARCHAR(255) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_phone_number (phone_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS complaints (
		complaint_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		title VARCHAR(200) NOT NULL,
		description TEXT NOT NULL,
		location VARCHAR(500) NOT NULL,
		latitude DECIMAL(10, 8) NULL,
		longitude DECIMAL(11, 8) NULL,
		image_key VARCHAR(255) NULL,
		image_mime VARCHAR(100) NULL,
		image_analysis TEXT NULL,
		image_analyzed_at TIMESTAMP NULL,
		category VARCHAR(50) NOT NULL,
		priority VARCHAR(20) NOT NULL,
		ai_reasoning TEXT NULL,
		ai_confidence DOUBLE NOT NULL DEFAULT 0,
		department_id BIGINT NOT NULL,
		staff_id BIGINT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'FILED',
		filed_at TIMESTAMP NOT NULL,
		sla_days_assigned INT NOT NULL,
		sla_deadline TIMESTAMP NOT NULL,
		resolved_at TIMESTAMP NULL,
		closed_at TIMESTAMP NULL,
		escalation_level INT NOT NULL DEFAULT 0,
		upvote_count INT NOT NULL DEFAULT 0,
		rating INT NULL,
		feedback TEXT NULL,
		citizen_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NULL,
		row_version BIGINT NOT NULL DEFAULT 1,
		INDEX idx_complaints_citizen (citizen_id),
		INDEX idx_complaints_status (status),
		INDEX idx_complaints_category (category),
		INDEX idx_complaints_department (department_id),
		INDEX idx_complaints_staff (staff_id),
		INDEX idx_complaints_sla_deadline (sla_deadline),
		INDEX idx_complaints_escalation (escalation_level),
		INDEX idx_complaints_location (latitude, longitude)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS resolution_proofs (
		proof_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		complaint_id BIGINT NOT NULL,
		author_staff_id BIGINT NOT NULL,
		image_key VARCHAR(255) NOT NULL,
		captured_lat DECIMAL(10, 8) NULL,
		captured_lng DECIMAL(11, 8) NULL,
		captured_at TIMESTAMP NULL,
		remarks TEXT NOT NULL,
		submitted_at TIMESTAMP NOT NULL,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		integrity_hash VARCHAR(64) NULL,
		INDEX idx_proofs_complaint (complaint_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS citizen_signoffs (
		signoff_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		complaint_id BIGINT NOT NULL,
		kind VARCHAR(20) NOT NULL,
		citizen_id BIGINT NOT NULL,
		rating INT NULL,
		feedback TEXT NULL,
		dispute_reason TEXT NULL,
		counter_proof_image_key VARCHAR(255) NULL,
		dispute_status VARCHAR(20) NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_signoffs_complaint (complaint_id),
		INDEX idx_signoffs_active (complaint_id, active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS upvotes (
		complaint_id BIGINT NOT NULL,
		citizen_id BIGINT NOT NULL,
		latitude DECIMAL(10, 8) NULL,
		longitude DECIMAL(11, 8) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (complaint_id, citizen_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS audit_events (
		event_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		entity_type VARCHAR(50) NOT NULL,
		entity_id VARCHAR(50) NOT NULL,
		action VARCHAR(50) NOT NULL,
		old_value TEXT NULL,
		new_value TEXT NULL,
		actor_type VARCHAR(20) NOT NULL,
		actor_id BIGINT NULL,
		reason TEXT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_audit_entity (entity_type, entity_id),
		INDEX idx_audit_action (action),
		INDEX idx_audit_actor (actor_id),
		INDEX idx_audit_created (created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,

	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id BIGINT PRIMARY KEY AUTO_INCREMENT,
		recipient_id BIGINT NOT NULL,
		type VARCHAR(50) NOT NULL,
		title VARCHAR(255) NOT NULL,
		message TEXT NOT NULL,
		complaint_ref BIGINT NULL,
		read_flag BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_notifications_recipient (recipient_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci`,
}
