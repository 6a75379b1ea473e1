package intake

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/audit"
	"grievance/internal/clock"
	"grievance/internal/complaint"
	"grievance/internal/duplicate"
	"grievance/internal/external"
	"grievance/internal/grievance"
	"grievance/internal/policy"
	"grievance/internal/store/fake"
)

type memStore struct{ objects map[string][]byte }

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (m *memStore) Put(ctx context.Context, bytes []byte, mime string) (string, error) {
	key := "key-" + string(rune(len(m.objects)+'0'))
	m.objects[key] = bytes
	return key, nil
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) { return m.objects[key], nil }

type fixedOracle struct {
	decision external.AIDecision
}

func (f fixedOracle) Analyze(ctx context.Context, text string, imageBytes []byte, imageMIME string) (external.AIDecision, error) {
	return f.decision, nil
}

type noNotifier struct{}

func (noNotifier) Notify(ctx context.Context, n *grievance.Notification) error { return nil }

type noRecipients struct{}

func (noRecipients) DepartmentHeadID(ctx context.Context, departmentID int64) (int64, bool, error) {
	return 0, false, nil
}
func (noRecipients) CommissionerID(ctx context.Context) (int64, bool, error) { return 0, false, nil }

type alwaysHasProof struct{}

func (alwaysHasProof) HasProof(ctx context.Context, complaintID int64) (bool, error) { return true, nil }

func newTestOrchestrator(t *testing.T, decision external.AIDecision) (*Orchestrator, *fake.ComplaintStore) {
	t.Helper()
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	auditSink := audit.New(fake.NewAuditStore(), clk, nil)
	engine := complaint.New(repo, alwaysHasProof{}, auditSink, noNotifier{}, noRecipients{}, policy.New(), clk,
		complaint.Config{DefaultDepartmentID: 1, PerCategorySLADays: map[grievance.Category]int{grievance.CategoryPothole: 7, grievance.CategoryOther: 14}, AIConfidenceThreshold: 0.8},
		nil)
	resolver := duplicate.New(repo, clk, 500, 0.6, 0.8)
	o := New(newMemStore(), resolver, fixedOracle{decision: decision}, engine)
	return o, repo
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	o, _ := newTestOrchestrator(t, external.AIDecision{Category: grievance.CategoryPothole, Confidence: 1})
	_, err := o.Submit(context.Background(), Request{CitizenID: 1, Title: "hi", Description: "too short", Location: "x"})
	require.Error(t, err)
	assert.Equal(t, grievance.KindValidation, grievance.KindOf(err))
}

func TestSubmitCreatesComplaintFromClassification(t *testing.T) {
	o, repo := newTestOrchestrator(t, external.AIDecision{Category: grievance.CategoryPothole, Priority: grievance.PriorityHigh, Confidence: 0.9})
	repo.SeedCategoryRouting(grievance.CategoryPothole, 5)

	res, err := o.Submit(context.Background(), Request{
		CitizenID:   1,
		Title:       "Pothole on 3rd",
		Description: "a deep pothole has formed near the bus stop",
		Location:    "3rd Street",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Complaint)
	assert.False(t, res.FoldedIntoUpvote)
	assert.Equal(t, grievance.StatusInProgress, res.Complaint.Status, "high confidence auto-starts")
}

func TestSubmitFoldsNearCertainDuplicateIntoUpvote(t *testing.T) {
	o, repo := newTestOrchestrator(t, external.AIDecision{Category: grievance.CategoryPothole, Confidence: 0.9})
	repo.SeedCategoryRouting(grievance.CategoryPothole, 5)

	lat, lng := 12.9716, 77.5946
	first, err := o.Submit(context.Background(), Request{
		CitizenID:   1,
		Title:       "Pothole on 3rd",
		Description: "a deep pothole has formed near the bus stop outside the school",
		Location:    "3rd Street",
		Latitude:    &lat,
		Longitude:   &lng,
	})
	require.NoError(t, err)
	require.False(t, first.FoldedIntoUpvote)

	second, err := o.Submit(context.Background(), Request{
		CitizenID:       2,
		Title:           "Pothole on 3rd",
		Description:     "a deep pothole has formed near the bus stop outside the school",
		Location:        "3rd Street",
		Latitude:        &lat,
		Longitude:       &lng,
		ConsentToUpvote: true,
	})
	require.NoError(t, err)
	assert.True(t, second.FoldedIntoUpvote)
	assert.Equal(t, first.Complaint.ComplaintID, second.Complaint.ComplaintID)
	assert.Equal(t, 1, second.Complaint.UpvoteCount)
}
