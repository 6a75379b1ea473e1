package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/actor"
	"grievance/internal/grievance"
)

func TestAuthorizeResolveRequiresProof(t *testing.T) {
	p := New()
	staff := actor.NewUserContext(10, actor.RoleStaff, 5, true)
	subj := Subject{DepartmentID: 5, HasProof: false}

	err := p.Authorize(staff, grievance.StatusInProgress, grievance.StatusResolved, subj)
	require.Error(t, err)
	var gerr *grievance.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grievance.KindPreconditionFailed, gerr.Kind)

	subj.HasProof = true
	assert.NoError(t, p.Authorize(staff, grievance.StatusInProgress, grievance.StatusResolved, subj))
}

func TestAuthorizeDepartmentMismatch(t *testing.T) {
	p := New()
	staff := actor.NewUserContext(10, actor.RoleStaff, 5, true)
	subj := Subject{DepartmentID: 6, HasProof: true}

	err := p.Authorize(staff, grievance.StatusInProgress, grievance.StatusResolved, subj)
	require.Error(t, err)
	var gerr *grievance.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grievance.KindDepartmentMismatch, gerr.Kind)
}

func TestAuthorizeOwnershipRequiredForCancellation(t *testing.T) {
	p := New()
	citizen := actor.NewUserContext(1, actor.RoleCitizen, 0, false)
	subj := Subject{CitizenID: 2}

	err := p.Authorize(citizen, grievance.StatusFiled, grievance.StatusCancelled, subj)
	require.Error(t, err)
	var gerr *grievance.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grievance.KindOwnershipRequired, gerr.Kind)

	subj.CitizenID = 1
	assert.NoError(t, p.Authorize(citizen, grievance.StatusFiled, grievance.StatusCancelled, subj))
}

func TestAuthorizeInvalidTransitionRejectedBeforeRoleCheck(t *testing.T) {
	p := New()
	admin := actor.NewUserContext(1, actor.RoleAdmin, 0, false)
	err := p.Authorize(admin, grievance.StatusFiled, grievance.StatusResolved, Subject{})
	require.Error(t, err)
	var gerr *grievance.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grievance.KindInvalidTransition, gerr.Kind)
}

func TestAuthorizeRoleNotPermitted(t *testing.T) {
	p := New()
	citizen := actor.NewUserContext(1, actor.RoleCitizen, 0, false)
	err := p.Authorize(citizen, grievance.StatusFiled, grievance.StatusInProgress, Subject{})
	require.Error(t, err)
	var gerr *grievance.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, grievance.KindUnauthorized, gerr.Kind)
}

func TestAllowedTransitions(t *testing.T) {
	p := New()
	system := actor.System
	out := p.AllowedTransitions(system, grievance.StatusFiled, Subject{})
	require.Len(t, out, 1)
	assert.Equal(t, grievance.StatusInProgress, out[0])

	citizen := actor.NewUserContext(1, actor.RoleCitizen, 0, false)
	out = p.AllowedTransitions(citizen, grievance.StatusFiled, Subject{CitizenID: 1})
	require.Len(t, out, 1)
	assert.Equal(t, grievance.StatusCancelled, out[0])
}

func TestSubjectFromComplaint(t *testing.T) {
	c := &grievance.Complaint{CitizenID: 7, DepartmentID: 3}
	c.StaffID.Int64, c.StaffID.Valid = 9, true

	subj := SubjectFromComplaint(c, true)
	assert.Equal(t, int64(7), subj.CitizenID)
	assert.Equal(t, int64(3), subj.DepartmentID)
	assert.True(t, subj.HasStaff)
	assert.Equal(t, int64(9), subj.StaffID)
	assert.True(t, subj.HasProof)
}
