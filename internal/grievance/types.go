// Package grievance holds the core complaint-lifecycle data model: the
// Complaint aggregate and its child records (ResolutionProof, CitizenSignoff,
// Upvote), plus the audit and notification record shapes. Optional columns
// use sql.Null*; db tags map snake_case columns for sqlx.
package grievance

import (
	"database/sql"
	"time"
)

// Category is one of the fixed enumerated complaint categories.
type Category string

const (
	CategoryPothole           Category = "POTHOLE"
	CategoryStreetlight       Category = "STREETLIGHT"
	CategoryWaterShortage     Category = "WATER_SHORTAGE"
	CategorySewerDrainage     Category = "SEWER_DRAINAGE"
	CategoryGarbage           Category = "GARBAGE"
	CategoryTrafficSignals    Category = "TRAFFIC_SIGNALS"
	CategoryParkMaintenance   Category = "PARK_MAINTENANCE"
	CategoryElectricalDamage  Category = "ELECTRICAL_DAMAGE"
	CategoryOther             Category = "OTHER"
)

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryPothole, CategoryStreetlight, CategoryWaterShortage, CategorySewerDrainage,
		CategoryGarbage, CategoryTrafficSignals, CategoryParkMaintenance, CategoryElectricalDamage, CategoryOther:
		return true
	}
	return false
}

// Priority is a complaint's urgency level.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// Upgrade returns the priority one step higher, capped at CRITICAL.
func (p Priority) Upgrade() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	case PriorityHigh, PriorityCritical:
		return PriorityCritical
	default:
		return p
	}
}

// Status is a complaint's lifecycle state (see internal/statemachine for
// legal transitions between these).
type Status string

const (
	StatusFiled      Status = "FILED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusClosed     Status = "CLOSED"
	StatusCancelled  Status = "CANCELLED"
)

// Complaint is the core aggregate. Invariants are enforced by
// internal/complaint.Engine, not by this struct.
type Complaint struct {
	ComplaintID     int64          `db:"complaint_id" json:"complaint_id"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	Location        string         `db:"location" json:"location"`
	Latitude        sql.NullFloat64 `db:"latitude" json:"latitude,omitempty"`
	Longitude       sql.NullFloat64 `db:"longitude" json:"longitude,omitempty"`
	ImageKey        sql.NullString `db:"image_key" json:"image_key,omitempty"`
	ImageMIME       sql.NullString `db:"image_mime" json:"image_mime,omitempty"`
	ImageAnalysis   sql.NullString `db:"image_analysis" json:"image_analysis,omitempty"`
	ImageAnalyzedAt sql.NullTime   `db:"image_analyzed_at" json:"image_analyzed_at,omitempty"`

	Category      Category `db:"category" json:"category"`
	Priority      Priority `db:"priority" json:"priority"`
	AIReasoning   string   `db:"ai_reasoning" json:"ai_reasoning"`
	AIConfidence  float64  `db:"ai_confidence" json:"ai_confidence"`

	DepartmentID int64         `db:"department_id" json:"department_id"`
	StaffID      sql.NullInt64 `db:"staff_id" json:"staff_id,omitempty"`

	Status           Status       `db:"status" json:"status"`
	FiledAt          time.Time    `db:"filed_at" json:"filed_at"`
	SLADaysAssigned  int          `db:"sla_days_assigned" json:"sla_days_assigned"`
	SLADeadline      time.Time    `db:"sla_deadline" json:"sla_deadline"`
	ResolvedAt       sql.NullTime `db:"resolved_at" json:"resolved_at,omitempty"`
	ClosedAt         sql.NullTime `db:"closed_at" json:"closed_at,omitempty"`

	EscalationLevel int `db:"escalation_level" json:"escalation_level"`

	UpvoteCount int            `db:"upvote_count" json:"upvote_count"`
	Rating      sql.NullInt64  `db:"rating" json:"rating,omitempty"`
	Feedback    sql.NullString `db:"feedback" json:"feedback,omitempty"`

	CitizenID int64 `db:"citizen_id" json:"citizen_id"`

	CreatedAt time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt sql.NullTime `db:"updated_at" json:"updated_at,omitempty"`

	// RowVersion is incremented on every write made through the repository's
	// row-locked WithLock; no write compares it (the escalation
	// compare-and-swap checks the escalation level under the row lock).
	RowVersion int64 `db:"row_version" json:"-"`
}

// Overdue reports whether the complaint is past its SLA deadline as of now.
func (c *Complaint) Overdue(now time.Time) bool {
	return now.After(c.SLADeadline)
}

// ResolutionProof is evidence a staff member attaches before a complaint may
// enter RESOLVED. At least one must exist before that transition.
type ResolutionProof struct {
	ProofID       int64          `db:"proof_id" json:"proof_id"`
	ComplaintID   int64          `db:"complaint_id" json:"complaint_id"`
	AuthorStaffID int64          `db:"author_staff_id" json:"author_staff_id"`
	ImageKey      string         `db:"image_key" json:"image_key"`
	CapturedLat   sql.NullFloat64 `db:"captured_lat" json:"captured_lat,omitempty"`
	CapturedLng   sql.NullFloat64 `db:"captured_lng" json:"captured_lng,omitempty"`
	CapturedAt    sql.NullTime   `db:"captured_at" json:"captured_at,omitempty"`
	Remarks       string         `db:"remarks" json:"remarks"`
	SubmittedAt   time.Time      `db:"submitted_at" json:"submitted_at"`
	Verified      bool           `db:"verified" json:"verified"`
	// IntegrityHash is a SHA-256 digest over the image bytes, coordinates, and
	// server-stamped capture time (internal/evidencehash). It detects
	// post-capture tampering of the stored image; it is not proof of
	// authenticity beyond what the fields themselves already record.
	IntegrityHash string `db:"integrity_hash" json:"integrity_hash,omitempty"`
}

// SignoffKind distinguishes a citizen's acceptance from a dispute.
type SignoffKind string

const (
	SignoffAcceptance SignoffKind = "ACCEPTANCE"
	SignoffDispute    SignoffKind = "DISPUTE"
)

// DisputeStatus tracks adjudication of a dispute signoff.
type DisputeStatus string

const (
	DisputePending  DisputeStatus = "PENDING"
	DisputeApproved DisputeStatus = "APPROVED"
	DisputeRejected DisputeStatus = "REJECTED"
)

// CitizenSignoff is the citizen's post-resolution response. Logically 1:1 per
// complaint (at most one ACTIVE row at a time); physically 1:N so disputes
// and their adjudication history are retained.
type CitizenSignoff struct {
	SignoffID             int64          `db:"signoff_id" json:"signoff_id"`
	ComplaintID           int64          `db:"complaint_id" json:"complaint_id"`
	Kind                  SignoffKind    `db:"kind" json:"kind"`
	CitizenID             int64          `db:"citizen_id" json:"citizen_id"`
	Rating                sql.NullInt64  `db:"rating" json:"rating,omitempty"`
	Feedback              sql.NullString `db:"feedback" json:"feedback,omitempty"`
	DisputeReason         sql.NullString `db:"dispute_reason" json:"dispute_reason,omitempty"`
	CounterProofImageKey  sql.NullString `db:"counter_proof_image_key" json:"counter_proof_image_key,omitempty"`
	DisputeStatus         sql.NullString `db:"dispute_status" json:"dispute_status,omitempty"`
	Active                bool           `db:"active" json:"active"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
}

// Upvote is a citizen's community endorsement of an existing complaint.
// Unique on (ComplaintID, CitizenID); a citizen cannot upvote their own.
type Upvote struct {
	ComplaintID int64          `db:"complaint_id" json:"complaint_id"`
	CitizenID   int64          `db:"citizen_id" json:"citizen_id"`
	Latitude    sql.NullFloat64 `db:"latitude" json:"latitude,omitempty"`
	Longitude   sql.NullFloat64 `db:"longitude" json:"longitude,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// ActorKind distinguishes a human/system actor for audit records, the two
// kinds the audit log itself cares about; role granularity lives in
// internal/actor.
type ActorKind string

const (
	ActorKindUser   ActorKind = "USER"
	ActorKindSystem ActorKind = "SYSTEM"
)

// AuditAction enumerates the kinds of audit events the core emits.
type AuditAction string

const (
	ActionStateChange AuditAction = "STATE_CHANGE"
	ActionEscalation  AuditAction = "ESCALATION"
	ActionSLAUpdate   AuditAction = "SLA_UPDATE"
	ActionAssignment  AuditAction = "ASSIGNMENT"
	ActionSuspension  AuditAction = "SUSPENSION"
	ActionCreated     AuditAction = "CREATED"
	ActionUpdated     AuditAction = "UPDATED"
	ActionComment     AuditAction = "COMMENT"
	ActionRating      AuditAction = "RATING"
)

// AuditEvent is an immutable audit-log row. No update or delete path exists
// anywhere in this codebase.
type AuditEvent struct {
	EventID    int64          `db:"event_id" json:"event_id"`
	EntityType string         `db:"entity_type" json:"entity_type"`
	EntityID   string         `db:"entity_id" json:"entity_id"`
	Action     AuditAction    `db:"action" json:"action"`
	OldValue   sql.NullString `db:"old_value" json:"old_value,omitempty"`
	NewValue   sql.NullString `db:"new_value" json:"new_value,omitempty"`
	ActorType  ActorKind      `db:"actor_type" json:"actor_type"`
	ActorID    sql.NullInt64  `db:"actor_id" json:"actor_id,omitempty"`
	Reason     sql.NullString `db:"reason" json:"reason,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// NotificationType enumerates the kinds of user-visible notifications the
// dispatcher fans out.
type NotificationType string

const (
	NotifyEscalation    NotificationType = "ESCALATION"
	NotifyStatusChange  NotificationType = "STATUS_CHANGE"
	NotifyAssignment    NotificationType = "ASSIGNMENT"
	NotifySLAWarning    NotificationType = "SLA_WARNING"
	NotifySLABreach     NotificationType = "SLA_BREACH"
	NotifyResolution    NotificationType = "RESOLUTION"
	NotifyGeneral       NotificationType = "GENERAL"
)

// Notification is a user-visible, in-app inbox entry.
type Notification struct {
	NotificationID int64          `db:"notification_id" json:"notification_id"`
	RecipientID    int64          `db:"recipient_id" json:"recipient_id"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string         `db:"title" json:"title"`
	Message        string         `db:"message" json:"message"`
	ComplaintRef   sql.NullInt64  `db:"complaint_ref" json:"complaint_ref,omitempty"`
	ReadFlag       bool           `db:"read_flag" json:"read_flag"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}
