package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReportURL() model.ReportURL {
	return model.ReportURL{
		SearchQueryID: "sq-1",
		Name:          "broken link",
		FlagURL:       "https://example.com/broken",
		Status:        domain.ReportURLStatusError,
	}
}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStorageWithDB(sqlx.NewDb(db, "sqlmock"), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return store, mock
}

func jobRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"job_id", "name", "status", "active", "frequency", "due_at", "last_run_at",
		"search_queries", "urls", "notifications", "last_report",
		"created_by_auth_id", "updated_by_auth_id", "created_at", "updated_at",
	})
}

func TestListDueJobs_SelectionPredicate(t *testing.T) {
	store, mock := newMockStorage(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`active = TRUE\s+AND frequency <> \$1\s+AND due_at <= \$2`).
		WithArgs(domain.FrequencyDisabled, now, 50).
		WillReturnRows(jobRows().AddRow(
			"job-1", "nightly scan", domain.JobStatusInit, true, "2h", now.Add(-time.Minute), nil,
			[]byte(`[]`), []byte(`["https://example.com"]`), []byte(`[]`), nil,
			"auth-1", "", now.Add(-time.Hour), now.Add(-time.Hour),
		))

	jobs, err := store.ListDueJobs(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job-1", jobs[0].JobID)
	assert.Equal(t, "2h", jobs[0].Frequency)
	assert.Equal(t, []string{"https://example.com"}, []string(jobs[0].URLs))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobDispatched(t *testing.T) {
	store, mock := newMockStorage(t)

	runAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE jobs\s+SET last_run_at = \$2`).
		WithArgs("job-1", runAt, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkJobDispatched(context.Background(), "job-1", runAt, true)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkJobDispatched_NotFound(t *testing.T) {
	store, mock := newMockStorage(t)

	runAt := time.Now().UTC()

	mock.ExpectExec(`UPDATE jobs\s+SET last_run_at = \$2`).
		WithArgs("missing", runAt, false).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkJobDispatched(context.Background(), "missing", runAt, false)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobByID_NotFound(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(`FROM jobs WHERE job_id = \$1`).
		WithArgs("missing").
		WillReturnRows(jobRows())

	_, err := store.GetJobByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReportStatus_ReturnsPreviousStatus(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(`UPDATE reports\s+SET status = \$2`).
		WithArgs("report-1", domain.ReportStatusDone, "scan finished").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(domain.ReportStatusInit))

	prev, err := store.SetReportStatus(context.Background(), "report-1", domain.ReportStatusDone, "scan finished")
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusInit, prev)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetReportStatus_NotFound(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectQuery(`UPDATE reports\s+SET status = \$2`).
		WithArgs("missing", domain.ReportStatusDone, "").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))

	_, err := store.SetReportStatus(context.Background(), "missing", domain.ReportStatusDone, "")
	assert.ErrorIs(t, err, domain.ErrReportNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddReportURL_ErrorDelta(t *testing.T) {
	store, mock := newMockStorage(t)

	mock.ExpectExec(`UPDATE reports\s+SET urls = urls \|\| \$2`).
		WithArgs("report-1", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AddReportURL(context.Background(), "report-1", testReportURL(), 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
