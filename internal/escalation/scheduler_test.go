package escalation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/actor"
	"grievance/internal/audit"
	"grievance/internal/clock"
	"grievance/internal/complaint"
	"grievance/internal/grievance"
	"grievance/internal/policy"
	"grievance/internal/store/fake"
)

type stubNotifier struct{ sent []*grievance.Notification }

func (s *stubNotifier) Notify(ctx context.Context, n *grievance.Notification) error {
	s.sent = append(s.sent, n)
	return nil
}

type stubAdmins struct{}

func (stubAdmins) AdminID(ctx context.Context) (int64, bool, error) { return 1, true, nil }

type stubRecipients struct{}

func (stubRecipients) DepartmentHeadID(ctx context.Context, departmentID int64) (int64, bool, error) {
	return 100, true, nil
}
func (stubRecipients) CommissionerID(ctx context.Context) (int64, bool, error) { return 200, true, nil }

type stubProofChecker struct{}

func (stubProofChecker) HasProof(ctx context.Context, complaintID int64) (bool, error) {
	return true, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *fake.ComplaintStore, *complaint.Engine, *clock.FixedClock, *stubNotifier) {
	t.Helper()
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	auditSink := audit.New(fake.NewAuditStore(), clk, nil)
	notifier := &stubNotifier{}
	engine := complaint.New(repo, stubProofChecker{}, auditSink, notifier, stubRecipients{}, policy.New(), clk,
		complaint.Config{DefaultDepartmentID: 1, PerCategorySLADays: map[grievance.Category]int{grievance.CategoryPothole: 7}, AIConfidenceThreshold: 2}, nil)
	sched := New(repo, engine, auditSink, notifier, stubAdmins{}, NewLocalLock(), clk, Config{
		SignoffWindow:       72 * time.Hour,
		StaleFiledThreshold: 48 * time.Hour,
	}, nil)
	return sched, repo, engine, clk, notifier
}

func fileInProgress(t *testing.T, engine *complaint.Engine, repo *fake.ComplaintStore, deptID int64) *grievance.Complaint {
	t.Helper()
	repo.SeedCategoryRouting(grievance.CategoryPothole, deptID)
	c, err := engine.CreateFromIntake(context.Background(), complaint.IntakeDraft{CitizenID: 1, Title: "t", Description: "d", Location: "l"},
		complaint.AIDecision{Category: grievance.CategoryPothole, Priority: grievance.PriorityMedium, Confidence: 0})
	require.NoError(t, err)
	started, err := engine.Transition(context.Background(), c.ComplaintID, grievance.StatusInProgress, actor.System, "start")
	require.NoError(t, err)
	return started
}

func TestSweepEscalatesOverdueLevel0(t *testing.T) {
	sched, repo, engine, clk, _ := newTestScheduler(t)
	c := fileInProgress(t, engine, repo, 5)
	clk.Advance(8 * 24 * time.Hour) // past the 7-day SLA

	sched.Sweep(context.Background())

	reloaded, err := engine.Get(context.Background(), c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.EscalationLevel)
	assert.Equal(t, grievance.PriorityHigh, reloaded.Priority)
}

func TestSweepIsIdempotentAcrossRuns(t *testing.T) {
	sched, repo, engine, clk, _ := newTestScheduler(t)
	c := fileInProgress(t, engine, repo, 5)
	clk.Advance(8 * 24 * time.Hour)

	sched.Sweep(context.Background())
	sched.Sweep(context.Background())

	reloaded, err := engine.Get(context.Background(), c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.EscalationLevel, "a second sweep before the SLA has been breached for 3 days must not re-escalate")
}

func TestSweepEscalatesToLevel2AfterBreachWindow(t *testing.T) {
	sched, repo, engine, clk, _ := newTestScheduler(t)
	c := fileInProgress(t, engine, repo, 5)
	clk.Advance(8 * 24 * time.Hour)
	sched.Sweep(context.Background())

	clk.Advance(level2BreachWindow + time.Hour)
	sched.Sweep(context.Background())

	reloaded, err := engine.Get(context.Background(), c.ComplaintID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.EscalationLevel)
	assert.Equal(t, grievance.PriorityCritical, reloaded.Priority)
}

func TestOverdueAndStats(t *testing.T) {
	sched, repo, engine, clk, _ := newTestScheduler(t)
	fileInProgress(t, engine, repo, 5)
	clk.Advance(8 * 24 * time.Hour)

	overdue, err := sched.Overdue(context.Background())
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	stats, err := sched.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalOverdue)
	assert.Equal(t, 1, stats.Level0)
}

func TestLeaderLockPreventsConcurrentSweeps(t *testing.T) {
	lock := NewLocalLock()
	release, ok, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok2, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok2, "a second acquire must fail while the first holds the lock")

	release()
	_, ok3, err := lock.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok3)
}
