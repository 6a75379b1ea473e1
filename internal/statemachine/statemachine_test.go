package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/actor"
	"grievance/internal/grievance"
)

func TestLegal(t *testing.T) {
	assert.True(t, Legal(grievance.StatusFiled, grievance.StatusInProgress))
	assert.True(t, Legal(grievance.StatusInProgress, grievance.StatusResolved))
	assert.False(t, Legal(grievance.StatusFiled, grievance.StatusResolved))
	assert.False(t, Legal(grievance.StatusClosed, grievance.StatusInProgress))
}

func TestRoleAllowed(t *testing.T) {
	assert.True(t, RoleAllowed(grievance.StatusFiled, grievance.StatusInProgress, actor.RoleSystem))
	assert.False(t, RoleAllowed(grievance.StatusFiled, grievance.StatusInProgress, actor.RoleCitizen))
	assert.True(t, RoleAllowed(grievance.StatusInProgress, grievance.StatusResolved, actor.RoleStaff))
	assert.True(t, RoleAllowed(grievance.StatusInProgress, grievance.StatusResolved, actor.RoleDeptHead))
	assert.False(t, RoleAllowed(grievance.StatusInProgress, grievance.StatusResolved, actor.RoleCitizen))
	// Not even a legal transition, so no role can be allowed.
	assert.False(t, RoleAllowed(grievance.StatusClosed, grievance.StatusFiled, actor.RoleAdmin))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(grievance.StatusClosed))
	assert.True(t, IsTerminal(grievance.StatusCancelled))
	assert.False(t, IsTerminal(grievance.StatusFiled))
	assert.False(t, IsTerminal(grievance.StatusInProgress))
	assert.False(t, IsTerminal(grievance.StatusResolved))
}

func TestReachableFrom(t *testing.T) {
	out := ReachableFrom(grievance.StatusResolved)
	require.Len(t, out, 3)
	assert.Contains(t, out, grievance.StatusClosed)
	assert.Contains(t, out, grievance.StatusInProgress)
	assert.Contains(t, out, grievance.StatusCancelled)

	assert.Empty(t, ReachableFrom(grievance.StatusClosed))
}

func TestLookupFirstMatchWins(t *testing.T) {
	tr, ok := Lookup(grievance.StatusResolved, grievance.StatusClosed)
	require.True(t, ok)
	assert.Equal(t, grievance.StatusResolved, tr.From)
	assert.Equal(t, grievance.StatusClosed, tr.To)

	_, ok = Lookup(grievance.StatusFiled, grievance.StatusClosed)
	assert.False(t, ok)
}
