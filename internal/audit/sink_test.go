package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/actor"
	"grievance/internal/clock"
	"grievance/internal/grievance"
	"grievance/internal/store/fake"
)

func TestRecordStampsActorAndTimestamp(t *testing.T) {
	clk := clock.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := New(fake.NewAuditStore(), clk, nil)

	old, new := "FILED", "IN_PROGRESS"
	ev, err := sink.Record(context.Background(), "COMPLAINT", "1", grievance.ActionStateChange, &old, &new, actor.System, "auto-start")
	require.NoError(t, err)
	assert.Equal(t, grievance.ActorKindSystem, ev.ActorType)
	assert.Equal(t, clk.Now(), ev.CreatedAt)

	citizen := actor.NewUserContext(7, actor.RoleCitizen, 0, false)
	ev2, err := sink.Record(context.Background(), "COMPLAINT", "1", grievance.ActionRating, nil, nil, citizen, "")
	require.NoError(t, err)
	assert.Equal(t, grievance.ActorKindUser, ev2.ActorType)
	assert.True(t, ev2.ActorID.Valid)
	assert.Equal(t, int64(7), ev2.ActorID.Int64)
}

func TestByEntityByActionByActorAndRecent(t *testing.T) {
	clk := clock.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := New(fake.NewAuditStore(), clk, nil)
	citizen := actor.NewUserContext(7, actor.RoleCitizen, 0, false)

	_, err := sink.Record(context.Background(), "COMPLAINT", "1", grievance.ActionCreated, nil, nil, actor.System, "")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = sink.Record(context.Background(), "COMPLAINT", "1", grievance.ActionRating, nil, nil, citizen, "")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = sink.Record(context.Background(), "COMPLAINT", "2", grievance.ActionCreated, nil, nil, actor.System, "")
	require.NoError(t, err)

	byEntity, err := sink.ByEntity(context.Background(), "COMPLAINT", "1")
	require.NoError(t, err)
	require.Len(t, byEntity, 2)
	assert.True(t, byEntity[0].CreatedAt.Before(byEntity[1].CreatedAt), "ByEntity is chronological ascending")

	byAction, err := sink.ByAction(context.Background(), grievance.ActionCreated)
	require.NoError(t, err)
	assert.Len(t, byAction, 2)

	byActor, err := sink.ByActor(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, byActor, 1)

	recent, err := sink.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt) || recent[0].CreatedAt.Equal(recent[1].CreatedAt), "Recent is newest first")
}
