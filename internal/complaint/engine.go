// Package complaint is the sole owner of every mutation to the Complaint
// aggregate. Transition legality and authorization are delegated to
// internal/statemachine + internal/policy, and every mutation is wrapped in
// a row-locked read-modify-write.
package complaint

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"grievance/internal/actor"
	"grievance/internal/clock"
	"grievance/internal/grievance"
	"grievance/internal/metrics"
	"grievance/internal/policy"
)

// Repository is the persistence surface the engine needs. store.ComplaintRepository
// implements it over *sqlx.DB; store/fake.ComplaintRepository implements it
// in memory for tests.
type Repository interface {
	Insert(ctx context.Context, c *grievance.Complaint) (int64, error)
	Get(ctx context.Context, complaintID int64) (*grievance.Complaint, error)
	// WithLock loads the complaint under a row lock, invokes fn against the
	// in-memory copy, and persists it in the same transaction iff fn
	// returns nil.
	WithLock(ctx context.Context, complaintID int64, fn func(c *grievance.Complaint) error) (*grievance.Complaint, error)
	StaffBelongsToDepartment(ctx context.Context, staffID, departmentID int64) (bool, error)
	DepartmentForCategory(ctx context.Context, category grievance.Category) (int64, bool, error)
}

// ProofChecker answers "does this complaint have at least one resolution
// proof", the precondition internal/policy needs for RESOLVED. Defined here
// (not imported from internal/proof) so internal/proof can depend on
// internal/complaint without a cycle.
type ProofChecker interface {
	HasProof(ctx context.Context, complaintID int64) (bool, error)
}

// AuditSink is the subset of audit.Sink the engine calls.
type AuditSink interface {
	Record(ctx context.Context, entityType, entityID string, action grievance.AuditAction, oldValue, newValue *string, a actor.Context, reason string) (*grievance.AuditEvent, error)
}

// Notifier is the subset of notify.Dispatcher the engine calls.
type Notifier interface {
	Notify(ctx context.Context, n *grievance.Notification) error
}

// RecipientResolver looks up the user id that should be notified for a given
// department/commissioner role, master data the engine reads but does not
// own.
type RecipientResolver interface {
	DepartmentHeadID(ctx context.Context, departmentID int64) (int64, bool, error)
	CommissionerID(ctx context.Context) (int64, bool, error)
}

// Config holds the department/SLA master data and the AI auto-start
// threshold the engine consults (config.Config carries these in practice).
type Config struct {
	DefaultDepartmentID   int64
	PerCategorySLADays    map[grievance.Category]int
	AIConfidenceThreshold float64
}

// Engine owns every complaint mutation.
type Engine struct {
	repo       Repository
	proofs     ProofChecker
	audit      AuditSink
	notify     Notifier
	recipients RecipientResolver
	policy     *policy.Policy
	clock      clock.Clock
	cfg        Config
	metrics    *metrics.Metrics // nil-safe: tests construct an Engine without metrics
}

func New(repo Repository, proofs ProofChecker, audit AuditSink, notify Notifier, recipients RecipientResolver, pol *policy.Policy, clk clock.Clock, cfg Config, m *metrics.Metrics) *Engine {
	return &Engine{repo: repo, proofs: proofs, audit: audit, notify: notify, recipients: recipients, policy: pol, clock: clk, cfg: cfg, metrics: m}
}

// IntakeDraft is the validated, not-yet-classified submission handed off by
// the intake orchestrator.
type IntakeDraft struct {
	CitizenID   int64
	Title       string
	Description string
	Location    string
	Latitude    *float64
	Longitude   *float64
	ImageKey    *string
	ImageMIME   *string
}

// AIDecision is the AI oracle's classification result.
type AIDecision struct {
	Category      grievance.Category
	Priority      grievance.Priority
	SLADays       int
	Reasoning     string
	Confidence    float64
	ImageFindings *string
}

// Get loads a complaint by id without a lock (read path).
func (e *Engine) Get(ctx context.Context, complaintID int64) (*grievance.Complaint, error) {
	c, err := e.repo.Get(ctx, complaintID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to load complaint", err)
	}
	if c == nil {
		return nil, grievance.NewError(grievance.KindNotFound, "complaint not found", "")
	}
	return c, nil
}

// addSLADays applies calendar-day granularity, not 24h multiples.
func addSLADays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// CreateFromIntake assigns classification, routing, and SLA, then persists
// the complaint in FILED, auto-starting it to IN_PROGRESS when AI confidence
// clears the configured threshold. Low-confidence and OTHER complaints stay
// FILED awaiting manual routing.
func (e *Engine) CreateFromIntake(ctx context.Context, draft IntakeDraft, decision AIDecision) (*grievance.Complaint, error) {
	now := e.clock.Now()

	deptID, ok, err := e.repo.DepartmentForCategory(ctx, decision.Category)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to resolve department for category", err)
	}
	if !ok {
		deptID = e.cfg.DefaultDepartmentID
	}

	slaDays, ok := e.cfg.PerCategorySLADays[decision.Category]
	if !ok || slaDays <= 0 {
		slaDays = decision.SLADays
	}
	if slaDays <= 0 {
		slaDays = e.cfg.PerCategorySLADays[grievance.CategoryOther]
	}

	c := &grievance.Complaint{
		Title:           draft.Title,
		Description:     draft.Description,
		Location:        draft.Location,
		Category:        decision.Category,
		Priority:        decision.Priority,
		AIReasoning:     decision.Reasoning,
		AIConfidence:    decision.Confidence,
		DepartmentID:    deptID,
		Status:          grievance.StatusFiled,
		FiledAt:         now,
		SLADaysAssigned: slaDays,
		SLADeadline:     addSLADays(now, slaDays),
		CitizenID:       draft.CitizenID,
		CreatedAt:       now,
	}
	if draft.Latitude != nil {
		c.Latitude.Float64, c.Latitude.Valid = *draft.Latitude, true
	}
	if draft.Longitude != nil {
		c.Longitude.Float64, c.Longitude.Valid = *draft.Longitude, true
	}
	if draft.ImageKey != nil {
		c.ImageKey.String, c.ImageKey.Valid = *draft.ImageKey, true
	}
	if draft.ImageMIME != nil {
		c.ImageMIME.String, c.ImageMIME.Valid = *draft.ImageMIME, true
	}
	if decision.ImageFindings != nil {
		c.ImageAnalysis.String, c.ImageAnalysis.Valid = *decision.ImageFindings, true
		c.ImageAnalyzedAt.Time, c.ImageAnalyzedAt.Valid = now, true
	}

	id, err := e.repo.Insert(ctx, c)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist complaint", err)
	}
	c.ComplaintID = id

	// Audit failures never fail the originating operation.
	_, _ = e.audit.Record(ctx, "COMPLAINT", strconv.FormatInt(id, 10), grievance.ActionCreated, nil, nil, actor.System, "intake")

	autoStart := decision.Confidence >= e.cfg.AIConfidenceThreshold && decision.Category != grievance.CategoryOther
	if !autoStart {
		return c, nil
	}

	started, err := e.Transition(ctx, id, grievance.StatusInProgress, actor.System, "auto-start (AI confidence >= threshold)")
	if err != nil {
		// Auto-start failing is not fatal to intake; the complaint stays FILED.
		return c, nil
	}
	return started, nil
}

// Transition is the generic authorized transition entry point. A failed
// authorization check leaves the complaint untouched and emits no audit
// event.
func (e *Engine) Transition(ctx context.Context, complaintID int64, target grievance.Status, a actor.Context, reason string) (*grievance.Complaint, error) {
	hasProof, err := e.proofs.HasProof(ctx, complaintID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to check proof precondition", err)
	}

	var old grievance.Status
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		subj := policy.SubjectFromComplaint(c, hasProof)
		if err := e.policy.Authorize(a, c.Status, target, subj); err != nil {
			return err
		}
		old = c.Status
		c.Status = target
		now := e.clock.Now()
		switch target {
		case grievance.StatusResolved:
			c.ResolvedAt = sqlTime(now)
		case grievance.StatusClosed:
			c.ClosedAt = sqlTime(now)
		case grievance.StatusCancelled:
			c.ClosedAt = sqlTime(now)
		case grievance.StatusInProgress:
			// Re-opening via approved dispute clears a prior resolved timestamp.
			c.ResolvedAt.Valid = false
		}
		c.UpdatedAt = sqlTime(now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	oldStr, newStr := string(old), string(target)
	_, _ = e.audit.Record(ctx, "COMPLAINT", strconv.FormatInt(complaintID, 10), grievance.ActionStateChange, &oldStr, &newStr, a, reason)
	if e.metrics != nil {
		e.metrics.Transitions.WithLabelValues(oldStr, newStr).Inc()
	}
	_ = e.notify.Notify(ctx, &grievance.Notification{
		RecipientID:  updated.CitizenID,
		Type:         grievance.NotifyStatusChange,
		Title:        "Complaint status updated",
		Message:      oldStr + " -> " + newStr,
		ComplaintRef: sqlInt64(complaintID),
		CreatedAt:    e.clock.Now(),
	})
	return updated, nil
}

// AssignStaff assigns staffId to the complaint; permitted for DEPT_HEAD in
// the same department or ADMIN.
func (e *Engine) AssignStaff(ctx context.Context, complaintID, staffID int64, a actor.Context) (*grievance.Complaint, error) {
	var old string
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		if a.Role != actor.RoleDeptHead && a.Role != actor.RoleAdmin {
			return grievance.NewError(grievance.KindUnauthorized, "only a department head or admin may assign staff", "role="+string(a.Role))
		}
		if a.Role == actor.RoleDeptHead && a.DepartmentID != c.DepartmentID {
			return grievance.NewError(grievance.KindDepartmentMismatch, "department head does not own this complaint's department", "")
		}
		// Membership is checked against the complaint's department, not the
		// actor's: an admin assigning cross-department has none of their own.
		belongs, err := e.repo.StaffBelongsToDepartment(ctx, staffID, c.DepartmentID)
		if err != nil {
			return grievance.Wrap(grievance.KindExternalUnavailable, "failed to verify staff department", err)
		}
		if !belongs {
			return grievance.NewError(grievance.KindPreconditionFailed, "staff does not belong to the complaint's department", "")
		}
		if c.StaffID.Valid {
			old = strconv.FormatInt(c.StaffID.Int64, 10)
		}
		c.StaffID = sqlInt64(staffID)
		c.UpdatedAt = sqlTime(e.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}

	newStr := strconv.FormatInt(staffID, 10)
	_, _ = e.audit.Record(ctx, "ASSIGNMENT", strconv.FormatInt(complaintID, 10), grievance.ActionAssignment, &old, &newStr, a, "staff assignment")
	_ = e.notify.Notify(ctx, &grievance.Notification{
		RecipientID:  staffID,
		Type:         grievance.NotifyAssignment,
		Title:        "New complaint assigned",
		Message:      "Complaint #" + strconv.FormatInt(complaintID, 10) + " assigned to you",
		ComplaintRef: sqlInt64(complaintID),
		CreatedAt:    e.clock.Now(),
	})
	return updated, nil
}

// ManualRoute reassigns a complaint's department; ADMIN only. This is how
// low-confidence complaints parked in FILED get routed.
func (e *Engine) ManualRoute(ctx context.Context, complaintID, departmentID int64, a actor.Context, reason string) (*grievance.Complaint, error) {
	var old string
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		if a.Role != actor.RoleAdmin && a.Role != actor.RoleSuperAdmin {
			return grievance.NewError(grievance.KindUnauthorized, "only an admin may manually route a complaint", "role="+string(a.Role))
		}
		old = strconv.FormatInt(c.DepartmentID, 10)
		c.DepartmentID = departmentID
		c.UpdatedAt = sqlTime(e.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	newStr := strconv.FormatInt(departmentID, 10)
	_, _ = e.audit.Record(ctx, "ASSIGNMENT", strconv.FormatInt(complaintID, 10), grievance.ActionAssignment, &old, &newStr, a, reason)
	return updated, nil
}

// RecordRating lets the complaint's citizen rate it, once, only while
// RESOLVED or CLOSED.
func (e *Engine) RecordRating(ctx context.Context, complaintID int64, rating int, feedback string, a actor.Context) (*grievance.Complaint, error) {
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		if a.UserID != c.CitizenID {
			return grievance.NewError(grievance.KindOwnershipRequired, "only the complaint's citizen may rate it", "")
		}
		if c.Status != grievance.StatusResolved && c.Status != grievance.StatusClosed {
			return grievance.NewError(grievance.KindPreconditionFailed, "rating only allowed once resolved or closed", "status="+string(c.Status))
		}
		if c.Rating.Valid {
			return grievance.NewError(grievance.KindConflict, "complaint already rated", "")
		}
		c.Rating = sqlInt64(int64(rating))
		if feedback != "" {
			c.Feedback.String, c.Feedback.Valid = feedback, true
		}
		c.UpdatedAt = sqlTime(e.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	newStr := strconv.Itoa(rating)
	_, _ = e.audit.Record(ctx, "COMPLAINT", strconv.FormatInt(complaintID, 10), grievance.ActionRating, nil, &newStr, a, "citizen rating")
	return updated, nil
}

// ApplyPriorityUpgrade raises priority by one step, capped at CRITICAL.
// Called by the dispute-approval path (internal/proof), never directly by a
// citizen or staff request; the escalation sweep sets priority through
// EscalateLevel instead.
func (e *Engine) ApplyPriorityUpgrade(ctx context.Context, complaintID int64, reason string) (*grievance.Complaint, error) {
	var old string
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		old = string(c.Priority)
		c.Priority = c.Priority.Upgrade()
		c.UpdatedAt = sqlTime(e.clock.Now())
		return nil
	})
	if err != nil {
		return nil, err
	}
	newStr := string(updated.Priority)
	_, _ = e.audit.Record(ctx, "COMPLAINT", strconv.FormatInt(complaintID, 10), grievance.ActionUpdated, &old, &newStr, actor.System, reason)
	return updated, nil
}

// EscalateLevel performs the conditional "escalate from level X to X+1 only
// if current level=X" write the scheduler relies on for idempotency. It
// returns escalated=false with no error, no mutation, and no audit event when
// the complaint's level has already moved past fromLevel (another sweep won
// the race, or this is a repeat run). newPriority is set atomically with the
// level change; callers decide the exact priority semantics (level 0->1 one
// step higher, level 1->2 straight to CRITICAL).
func (e *Engine) EscalateLevel(ctx context.Context, complaintID int64, fromLevel, toLevel int, newPriority grievance.Priority, reason string) (c *grievance.Complaint, escalated bool, err error) {
	updated, err := e.repo.WithLock(ctx, complaintID, func(c *grievance.Complaint) error {
		if c.EscalationLevel != fromLevel {
			return nil
		}
		c.EscalationLevel = toLevel
		c.Priority = newPriority
		c.UpdatedAt = sqlTime(e.clock.Now())
		escalated = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !escalated {
		return updated, false, nil
	}
	oldStr, newStr := strconv.Itoa(fromLevel), strconv.Itoa(toLevel)
	_, _ = e.audit.Record(ctx, "COMPLAINT", strconv.FormatInt(complaintID, 10), grievance.ActionEscalation, &oldStr, &newStr, actor.System, reason)
	if e.metrics != nil {
		e.metrics.Escalations.WithLabelValues(newStr).Inc()
	}

	if toLevel == 1 {
		if headID, ok, rerr := e.recipients.DepartmentHeadID(ctx, updated.DepartmentID); rerr == nil && ok {
			_ = e.notify.Notify(ctx, &grievance.Notification{RecipientID: headID, Type: grievance.NotifyEscalation,
				Title: "Complaint escalated", Message: reason, ComplaintRef: sqlInt64(complaintID), CreatedAt: e.clock.Now()})
		}
	} else if toLevel == 2 {
		if commID, ok, rerr := e.recipients.CommissionerID(ctx); rerr == nil && ok {
			_ = e.notify.Notify(ctx, &grievance.Notification{RecipientID: commID, Type: grievance.NotifyEscalation,
				Title: "Complaint escalated to commissioner", Message: reason, ComplaintRef: sqlInt64(complaintID), CreatedAt: e.clock.Now()})
		}
	}
	return updated, true, nil
}

func sqlTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func sqlInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
