// Package policy resolves the compound (actor, transition, complaint)
// authorization decision the complaint engine (internal/complaint) and proof
// protocol (internal/proof) delegate to before mutating anything. Role,
// ownership, department, and precondition checks all live here rather than
// scattered across handlers.
package policy

import (
	"strconv"

	"grievance/internal/actor"
	"grievance/internal/grievance"
	"grievance/internal/statemachine"
)

// Subject is the minimal complaint view the policy needs to evaluate a
// transition request; SubjectFromComplaint builds one from a loaded
// complaint.
type Subject struct {
	CitizenID    int64
	DepartmentID int64
	StaffID      int64
	HasStaff     bool
	HasProof     bool // true once >=1 ResolutionProof exists (precondition for RESOLVED)
}

// SubjectFromComplaint builds a Subject from a loaded complaint and a
// hasProof flag supplied by the caller (internal/complaint doesn't import
// internal/proof to avoid a cycle; the engine queries the proof store and
// passes the result in).
func SubjectFromComplaint(c *grievance.Complaint, hasProof bool) Subject {
	s := Subject{
		CitizenID:    c.CitizenID,
		DepartmentID: c.DepartmentID,
		HasProof:     hasProof,
	}
	if c.StaffID.Valid {
		s.StaffID = c.StaffID.Int64
		s.HasStaff = true
	}
	return s
}

// Policy is the single authorization object every mutating operation
// consults. It has no state of its own: it's pure given (actor, from, to,
// subject).
type Policy struct{}

func New() *Policy { return &Policy{} }

// Authorize runs the layered checks in order, returning the first failing
// check as a *grievance.Error. A nil return means the transition is fully
// authorized.
func (p *Policy) Authorize(a actor.Context, from, to grievance.Status, subj Subject) error {
	// 1. Transition legality (delegates to the state machine).
	if !statemachine.Legal(from, to) {
		return grievance.NewError(grievance.KindInvalidTransition, "transition not legal",
			string(from)+"->"+string(to))
	}

	// 2. Role allow-list for the transition.
	if !statemachine.RoleAllowed(from, to, a.Role) {
		return grievance.NewError(grievance.KindUnauthorized, "role not permitted for this transition",
			"role="+string(a.Role)+" from="+string(from)+" to="+string(to))
	}

	// 3. Ownership for citizen-originated closures and cancellations.
	if a.Role == actor.RoleCitizen && to == grievance.StatusCancelled {
		if a.UserID != subj.CitizenID {
			return grievance.NewError(grievance.KindOwnershipRequired, "citizen is not the complaint owner", "")
		}
	}
	if a.Role == actor.RoleCitizen && from == grievance.StatusResolved && to == grievance.StatusClosed {
		if a.UserID != subj.CitizenID {
			return grievance.NewError(grievance.KindOwnershipRequired, "citizen is not the complaint owner", "")
		}
	}

	// 4. Department match for staff resolutions.
	if (a.Role == actor.RoleStaff || a.Role == actor.RoleDeptHead) && from == grievance.StatusInProgress && to == grievance.StatusResolved {
		if a.DepartmentID != subj.DepartmentID {
			return grievance.NewError(grievance.KindDepartmentMismatch, "staff department does not match complaint department",
				"actor_dept="+strconv.FormatInt(a.DepartmentID, 10)+" complaint_dept="+strconv.FormatInt(subj.DepartmentID, 10))
		}
	}

	// 5. Precondition flags.
	if to == grievance.StatusResolved && !subj.HasProof {
		return grievance.NewError(grievance.KindPreconditionFailed, "resolution proof required before RESOLVED", "")
	}

	return nil
}

// AllowedTransitions answers "what transitions may this actor legally
// request now?" without attempting any of them, used by the
// allowed-transitions read endpoint.
func (p *Policy) AllowedTransitions(a actor.Context, from grievance.Status, subj Subject) []grievance.Status {
	var out []grievance.Status
	for _, to := range statemachine.ReachableFrom(from) {
		if p.Authorize(a, from, to, subj) == nil {
			out = append(out, to)
		}
	}
	return out
}
