package duplicate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/clock"
	"grievance/internal/grievance"
	"grievance/internal/store/fake"
)

func seedComplaint(t *testing.T, repo *fake.ComplaintStore, citizenID int64, desc string, lat, lng float64, status grievance.Status) int64 {
	t.Helper()
	c := &grievance.Complaint{
		CitizenID:   citizenID,
		Description: desc,
		Status:      status,
		FiledAt:     time.Now(),
		CreatedAt:   time.Now(),
	}
	c.Latitude.Float64, c.Latitude.Valid = lat, true
	c.Longitude.Float64, c.Longitude.Valid = lng, true
	id, err := repo.Insert(context.Background(), c)
	require.NoError(t, err)
	return id
}

func TestFindDuplicatesFiltersByDistanceAndSimilarity(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	seedComplaint(t, repo, 1, "large pothole near the main street junction", 12.9716, 77.5946, grievance.StatusFiled)
	// Far away (> radius), should not match despite identical text.
	seedComplaint(t, repo, 1, "large pothole near the main street junction", 13.5, 78.5, grievance.StatusFiled)

	matches, err := r.FindDuplicates(context.Background(), "large pothole near the main street junction", 12.9716, 77.5946)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].NearCertainDuplicate)
	assert.True(t, matches[0].LikelyDuplicate)
}

func TestFindDuplicatesExcludesDissimilarText(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	seedComplaint(t, repo, 1, "streetlight has been out for a week on Elm", 12.9716, 77.5946, grievance.StatusFiled)

	matches, err := r.FindDuplicates(context.Background(), "garbage has not been collected in days", 12.9716, 77.5946)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestUpvoteRejectsSelfUpvote(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	id := seedComplaint(t, repo, 1, "pothole", 0, 0, grievance.StatusFiled)
	_, err := r.Upvote(context.Background(), id, 1, nil, nil)
	require.Error(t, err)
	assert.Equal(t, grievance.KindConflict, grievance.KindOf(err))
}

func TestUpvoteAndRemoveRoundTrip(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	id := seedComplaint(t, repo, 1, "pothole", 0, 0, grievance.StatusFiled)
	count, err := r.Upvote(context.Background(), id, 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = r.Upvote(context.Background(), id, 2, nil, nil)
	require.Error(t, err)
	assert.Equal(t, grievance.KindConflict, grievance.KindOf(err))

	count, err = r.RemoveUpvote(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Removing again is a no-op, not an error.
	count, err = r.RemoveUpvote(context.Background(), id, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestNearbyFiltersBoxCornersByActualDistance(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	seedComplaint(t, repo, 1, "close", 12.9716, 77.5946, grievance.StatusFiled)
	// Within the bounding box's lat/lng range but beyond the circle's radius
	// along the diagonal.
	seedComplaint(t, repo, 1, "corner", 12.9741, 77.5971, grievance.StatusFiled)

	out, err := r.Nearby(context.Background(), 12.9716, 77.5946, 300, 10)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestTrendingOrdersByUpvoteCount(t *testing.T) {
	repo := fake.NewComplaintStore()
	clk := clock.NewFixedClock(time.Now())
	r := New(repo, clk, 500, 0.6, 0.8)

	low := seedComplaint(t, repo, 1, "a", 0, 0, grievance.StatusFiled)
	high := seedComplaint(t, repo, 1, "b", 0, 0, grievance.StatusFiled)
	_, err := r.Upvote(context.Background(), high, 5, nil, nil)
	require.NoError(t, err)

	out, err := r.Trending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, high, out[0].ComplaintID)
	assert.Equal(t, low, out[1].ComplaintID)
}
