// Package proof implements the resolution handshake: staff submit evidence
// while a complaint is in progress, resolution is gated on at least one
// proof existing, the citizen then accepts or disputes, and a department
// head adjudicates disputes. Capture timestamps are server-stamped, never
// client-supplied.
package proof

import (
	"context"
	"database/sql"
	"strconv"

	"grievance/internal/actor"
	"grievance/internal/clock"
	"grievance/internal/complaint"
	"grievance/internal/evidencehash"
	"grievance/internal/grievance"
)

// Repository is the persistence surface for proofs and signoffs.
type Repository interface {
	InsertProof(ctx context.Context, p *grievance.ResolutionProof) (int64, error)
	ProofsByComplaint(ctx context.Context, complaintID int64) ([]grievance.ResolutionProof, error)
	HasProof(ctx context.Context, complaintID int64) (bool, error)

	// InsertSignoff appends a new signoff row; Active is set by the caller.
	InsertSignoff(ctx context.Context, s *grievance.CitizenSignoff) (int64, error)
	ActiveSignoff(ctx context.Context, complaintID int64) (*grievance.CitizenSignoff, error)
	GetSignoff(ctx context.Context, signoffID int64) (*grievance.CitizenSignoff, error)
	// UpdateDisputeStatus moves a PENDING dispute signoff to APPROVED/REJECTED.
	UpdateDisputeStatus(ctx context.Context, signoffID int64, status grievance.DisputeStatus) error
}

// AuditSink is the subset of audit.Sink the protocol calls directly (the
// complaint.Engine it delegates to records its own STATE_CHANGE events).
type AuditSink interface {
	Record(ctx context.Context, entityType, entityID string, action grievance.AuditAction, oldValue, newValue *string, a actor.Context, reason string) (*grievance.AuditEvent, error)
}

// Protocol wires staff proof submission, citizen signoff, and dispute
// adjudication on top of the Complaint Engine's authorized Transition.
type Protocol struct {
	repo   Repository
	engine *complaint.Engine
	audit  AuditSink
	clock  clock.Clock
}

func New(repo Repository, engine *complaint.Engine, audit AuditSink, clk clock.Clock) *Protocol {
	return &Protocol{repo: repo, engine: engine, audit: audit, clock: clk}
}

// HasProof implements complaint.ProofChecker, letting the engine consult the
// precondition without importing this package.
func (p *Protocol) HasProof(ctx context.Context, complaintID int64) (bool, error) {
	return p.repo.HasProof(ctx, complaintID)
}

// SubmitProof appends evidence while the complaint is IN_PROGRESS. It does
// not itself change status.
func (p *Protocol) SubmitProof(ctx context.Context, complaintID int64, staffCtx actor.Context, imageKey, remarks string, lat, lng *float64, imageBytes []byte) (*grievance.ResolutionProof, error) {
	if remarks == "" {
		return nil, grievance.NewError(grievance.KindValidation, "remarks must not be empty", "")
	}
	c, err := p.engine.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if c.Status != grievance.StatusInProgress {
		return nil, grievance.NewError(grievance.KindPreconditionFailed, "proof may only be submitted while IN_PROGRESS", "status="+string(c.Status))
	}
	if staffCtx.DepartmentID != c.DepartmentID {
		return nil, grievance.NewError(grievance.KindDepartmentMismatch, "staff does not belong to the complaint's department", "")
	}

	now := p.clock.Now()
	proof := &grievance.ResolutionProof{
		ComplaintID:   complaintID,
		AuthorStaffID: staffCtx.UserID,
		ImageKey:      imageKey,
		Remarks:       remarks,
		SubmittedAt:   now,
	}
	if lat != nil {
		proof.CapturedLat.Float64, proof.CapturedLat.Valid = *lat, true
	}
	if lng != nil {
		proof.CapturedLng.Float64, proof.CapturedLng.Valid = *lng, true
	}
	proof.CapturedAt.Time, proof.CapturedAt.Valid = now, true // server-stamped, never client-supplied
	var hLat, hLng float64
	if lat != nil {
		hLat = *lat
	}
	if lng != nil {
		hLng = *lng
	}
	if len(imageBytes) > 0 {
		proof.IntegrityHash = evidencehash.Compute(imageBytes, hLat, hLng, now)
	}

	id, err := p.repo.InsertProof(ctx, proof)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist resolution proof", err)
	}
	proof.ProofID = id

	_, _ = p.audit.Record(ctx, "PROOF", strconv.FormatInt(complaintID, 10), grievance.ActionCreated, nil, &imageKey, staffCtx, remarks)
	return proof, nil
}

// Proofs lists every proof recorded against a complaint, oldest first.
func (p *Protocol) Proofs(ctx context.Context, complaintID int64) ([]grievance.ResolutionProof, error) {
	return p.repo.ProofsByComplaint(ctx, complaintID)
}

// Resolve transitions IN_PROGRESS → RESOLVED, failing with ProofRequired if
// no proof exists. The citizen-response window itself is enforced by the
// escalation scheduler's auto-close sweep, not here.
func (p *Protocol) Resolve(ctx context.Context, complaintID int64, staffCtx actor.Context) (*grievance.Complaint, error) {
	has, err := p.repo.HasProof(ctx, complaintID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to check proof precondition", err)
	}
	if !has {
		return nil, grievance.NewError(grievance.KindPreconditionFailed, "at least one resolution proof is required before resolving", "ProofRequired")
	}
	return p.engine.Transition(ctx, complaintID, grievance.StatusResolved, staffCtx, "resolution submitted by staff")
}

// Accept is the citizen acceptance path: RESOLVED → CLOSED with a rating.
// Re-accepting an already-CLOSED complaint by the same citizen is a
// no-op success.
func (p *Protocol) Accept(ctx context.Context, complaintID int64, citizenCtx actor.Context, rating int, feedback string) (*grievance.Complaint, error) {
	c, err := p.engine.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if citizenCtx.UserID != c.CitizenID {
		return nil, grievance.NewError(grievance.KindOwnershipRequired, "only the complaint's citizen may sign off", "")
	}
	if c.Status == grievance.StatusClosed {
		return c, nil
	}
	if c.Status != grievance.StatusResolved {
		return nil, grievance.NewError(grievance.KindPreconditionFailed, "signoff only allowed while RESOLVED", "status="+string(c.Status))
	}
	existing, err := p.repo.ActiveSignoff(ctx, complaintID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to check existing signoff", err)
	}
	if existing != nil {
		return nil, grievance.NewError(grievance.KindConflict, "complaint already has an active signoff", "")
	}

	signoff := &grievance.CitizenSignoff{
		ComplaintID: complaintID,
		Kind:        grievance.SignoffAcceptance,
		CitizenID:   citizenCtx.UserID,
		Active:      true,
		CreatedAt:   p.clock.Now(),
	}
	if rating > 0 {
		signoff.Rating.Int64, signoff.Rating.Valid = int64(rating), true
	}
	if feedback != "" {
		signoff.Feedback.String, signoff.Feedback.Valid = feedback, true
	}
	id, err := p.repo.InsertSignoff(ctx, signoff)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist signoff", err)
	}
	_, _ = p.audit.Record(ctx, "SIGNOFF", strconv.FormatInt(id, 10), grievance.ActionCreated, nil, nil, citizenCtx, "citizen acceptance")

	updated, err := p.engine.Transition(ctx, complaintID, grievance.StatusClosed, citizenCtx, "citizen accepted resolution")
	if err != nil {
		return nil, err
	}
	if rating > 0 {
		if _, rerr := p.engine.RecordRating(ctx, complaintID, rating, feedback, citizenCtx); rerr != nil {
			return updated, rerr
		}
	}
	return updated, nil
}

// Dispute is the citizen contestation path: creates a PENDING dispute while
// the complaint remains RESOLVED until adjudication.
func (p *Protocol) Dispute(ctx context.Context, complaintID int64, citizenCtx actor.Context, reason string, counterProofImageKey *string) (*grievance.CitizenSignoff, error) {
	c, err := p.engine.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if citizenCtx.UserID != c.CitizenID {
		return nil, grievance.NewError(grievance.KindOwnershipRequired, "only the complaint's citizen may dispute", "")
	}
	if c.Status != grievance.StatusResolved {
		return nil, grievance.NewError(grievance.KindPreconditionFailed, "dispute only allowed while RESOLVED", "status="+string(c.Status))
	}
	existing, err := p.repo.ActiveSignoff(ctx, complaintID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to check existing signoff", err)
	}
	if existing != nil {
		return nil, grievance.NewError(grievance.KindConflict, "complaint already has an active signoff", "")
	}

	signoff := &grievance.CitizenSignoff{
		ComplaintID:   complaintID,
		Kind:          grievance.SignoffDispute,
		CitizenID:     citizenCtx.UserID,
		DisputeReason: sqlString(reason),
		Active:        true,
		CreatedAt:     p.clock.Now(),
	}
	signoff.DisputeStatus.String, signoff.DisputeStatus.Valid = string(grievance.DisputePending), true
	if counterProofImageKey != nil {
		signoff.CounterProofImageKey.String, signoff.CounterProofImageKey.Valid = *counterProofImageKey, true
	}
	id, err := p.repo.InsertSignoff(ctx, signoff)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to persist dispute", err)
	}
	signoff.SignoffID = id

	_, _ = p.audit.Record(ctx, "SIGNOFF", strconv.FormatInt(id, 10), grievance.ActionCreated, nil, sqlStringPtr(reason), citizenCtx, "citizen dispute")
	return signoff, nil
}

// ApproveDispute is the department head's escape hatch: RESOLVED →
// IN_PROGRESS, priority upgraded one step, escalation level advanced by
// one.
func (p *Protocol) ApproveDispute(ctx context.Context, complaintID, signoffID int64, deptHeadCtx actor.Context) (*grievance.Complaint, error) {
	if _, err := p.loadPendingDispute(ctx, complaintID, signoffID, deptHeadCtx); err != nil {
		return nil, err
	}

	if err := p.repo.UpdateDisputeStatus(ctx, signoffID, grievance.DisputeApproved); err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to update dispute status", err)
	}
	_, _ = p.audit.Record(ctx, "SIGNOFF", strconv.FormatInt(signoffID, 10), grievance.ActionUpdated, sqlStringPtr(string(grievance.DisputePending)), sqlStringPtr(string(grievance.DisputeApproved)), deptHeadCtx, "dispute approved")

	updated, err := p.engine.Transition(ctx, complaintID, grievance.StatusInProgress, actor.System, "dispute approved by department head")
	if err != nil {
		return nil, err
	}
	if _, err := p.engine.ApplyPriorityUpgrade(ctx, complaintID, "priority raised after approved dispute"); err != nil {
		return nil, err
	}
	updated, _, err = p.escalateByOne(ctx, complaintID, "escalation advanced after approved dispute")
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RejectDispute leaves the complaint RESOLVED; the normal auto-close timer
// continues uninterrupted.
func (p *Protocol) RejectDispute(ctx context.Context, complaintID, signoffID int64, deptHeadCtx actor.Context, reason string) error {
	if _, err := p.loadPendingDispute(ctx, complaintID, signoffID, deptHeadCtx); err != nil {
		return err
	}
	if err := p.repo.UpdateDisputeStatus(ctx, signoffID, grievance.DisputeRejected); err != nil {
		return grievance.Wrap(grievance.KindExternalUnavailable, "failed to update dispute status", err)
	}
	_, _ = p.audit.Record(ctx, "SIGNOFF", strconv.FormatInt(signoffID, 10), grievance.ActionUpdated, sqlStringPtr(string(grievance.DisputePending)), sqlStringPtr(string(grievance.DisputeRejected)), deptHeadCtx, reason)
	return nil
}

func (p *Protocol) loadPendingDispute(ctx context.Context, complaintID, signoffID int64, deptHeadCtx actor.Context) (*grievance.CitizenSignoff, error) {
	c, err := p.engine.Get(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if deptHeadCtx.Role != actor.RoleDeptHead && deptHeadCtx.Role != actor.RoleAdmin {
		return nil, grievance.NewError(grievance.KindUnauthorized, "only a department head or admin may adjudicate a dispute", "role="+string(deptHeadCtx.Role))
	}
	if deptHeadCtx.Role == actor.RoleDeptHead && deptHeadCtx.DepartmentID != c.DepartmentID {
		return nil, grievance.NewError(grievance.KindDepartmentMismatch, "department head does not own this complaint's department", "")
	}
	signoff, err := p.repo.GetSignoff(ctx, signoffID)
	if err != nil {
		return nil, grievance.Wrap(grievance.KindExternalUnavailable, "failed to load signoff", err)
	}
	if signoff == nil || signoff.ComplaintID != complaintID || signoff.Kind != grievance.SignoffDispute {
		return nil, grievance.NewError(grievance.KindNotFound, "dispute signoff not found", "")
	}
	if !signoff.DisputeStatus.Valid || signoff.DisputeStatus.String != string(grievance.DisputePending) {
		return nil, grievance.NewError(grievance.KindConflict, "dispute already adjudicated", "")
	}
	return signoff, nil
}

// escalateByOne advances escalation level by exactly one step using the
// engine's compare-and-swap write, re-using the same idempotent primitive the
// scheduler relies on. Priority was already upgraded by the caller, so the
// current value is carried through unchanged.
func (p *Protocol) escalateByOne(ctx context.Context, complaintID int64, reason string) (*grievance.Complaint, bool, error) {
	c, err := p.engine.Get(ctx, complaintID)
	if err != nil {
		return nil, false, err
	}
	from := c.EscalationLevel
	to := from + 1
	if to > 2 {
		to = 2
	}
	return p.engine.EscalateLevel(ctx, complaintID, from, to, c.Priority, reason)
}

func sqlString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func sqlStringPtr(s string) *string { return &s }
