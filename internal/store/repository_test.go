package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grievance/internal/grievance"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "mysql"), mock
}

// complaintColumnNames splits the shared SELECT list so mocked rows always
// match the scan targets, column for column.
func complaintColumnNames() []string {
	parts := strings.Split(complaintColumns, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func complaintRowValues(id int64, status grievance.Status, now time.Time) []driver.Value {
	return []driver.Value{
		id, "Pothole on MG Road", "large pothole, 1m wide", "MG Road",
		12.97, 77.59, nil, nil, nil, nil,
		string(grievance.CategoryPothole), string(grievance.PriorityMedium), "classified", 0.92,
		int64(5), nil,
		string(status), now, 3, now.AddDate(0, 0, 3), nil, nil,
		0, 0, nil, nil, int64(42),
		now, nil, int64(1),
	}
}

func TestComplaintRepositoryGetScansFullRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM complaints WHERE complaint_id = ").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(complaintColumnNames()).AddRow(complaintRowValues(7, grievance.StatusFiled, now)...))

	c, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, int64(7), c.ComplaintID)
	assert.Equal(t, grievance.StatusFiled, c.Status)
	assert.Equal(t, grievance.CategoryPothole, c.Category)
	assert.Equal(t, int64(42), c.CitizenID)
	assert.True(t, c.Latitude.Valid)
	assert.False(t, c.StaffID.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestComplaintRepositoryGetReturnsNilOnNoRows(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM complaints WHERE complaint_id = ").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	c, err := repo.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, c)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStaffBelongsToDepartment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM staff WHERE staff_id = ").
		WithArgs(int64(7), int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := repo.StaffBelongsToDepartment(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepartmentForCategoryMissingRow(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)

	mock.ExpectQuery("SELECT department_id FROM category_department_routing WHERE category = ").
		WithArgs(string(grievance.CategoryOther)).
		WillReturnError(sql.ErrNoRows)

	_, found, err := repo.DepartmentForCategory(context.Background(), grievance.CategoryOther)
	require.NoError(t, err)
	assert.False(t, found, "a category with no routing row reports not-found, not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertUpvoteRunsInOneTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO upvotes").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE complaints SET upvote_count = upvote_count \\+ 1").
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT upvote_count FROM complaints WHERE complaint_id = ").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"upvote_count"}).AddRow(4))
	mock.ExpectCommit()

	count, err := repo.InsertUpvote(context.Background(), &grievance.Upvote{
		ComplaintID: 3, CitizenID: 9, CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveUpvoteIsNoOpWhenAbsent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewComplaintRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM upvotes WHERE complaint_id = ").
		WithArgs(int64(3), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	_, existed, err := repo.RemoveUpvote(context.Background(), 3, 9)
	require.NoError(t, err)
	assert.False(t, existed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditInsertIndependentAssignsEventID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_events").
		WillReturnResult(sqlmock.NewResult(11, 1))

	ev := &grievance.AuditEvent{
		EntityType: "COMPLAINT",
		EntityID:   "1",
		Action:     grievance.ActionStateChange,
		ActorType:  grievance.ActorKindSystem,
		CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.InsertIndependent(context.Background(), ev))
	assert.Equal(t, int64(11), ev.EventID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditByEntityQueriesAscending(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM audit_events WHERE entity_type = (.+) ORDER BY created_at ASC, event_id ASC").
		WithArgs("COMPLAINT", "1").
		WillReturnRows(sqlmock.NewRows([]string{
			"event_id", "entity_type", "entity_id", "action", "old_value", "new_value",
			"actor_type", "actor_id", "reason", "created_at",
		}).
			AddRow(1, "COMPLAINT", "1", "CREATED", nil, nil, "SYSTEM", nil, nil, now).
			AddRow(2, "COMPLAINT", "1", "STATE_CHANGE", "FILED", "IN_PROGRESS", "SYSTEM", nil, "auto-start", now.Add(time.Second)))

	events, err := repo.ByEntity(context.Background(), "COMPLAINT", "1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, grievance.ActionCreated, events[0].Action)
	assert.Equal(t, grievance.ActionStateChange, events[1].Action)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProofRepositoryHasProof(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewProofRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM resolution_proofs WHERE complaint_id = ").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	has, err := repo.HasProof(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, mock.ExpectationsWereMet())
}
