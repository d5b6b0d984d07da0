package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/kuato/kuato-be/shared/postgresql"
)

const jobColumns = `
	job_id, name, status, active, frequency, due_at, last_run_at,
	search_queries, urls, notifications, last_report,
	created_by_auth_id, updated_by_auth_id, created_at, updated_at
`

// ListJobsLimit caps job listings, matching the API contract.
const ListJobsLimit = 100

// Storage handles all database operations for jobs and reports
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// NewStorageWithDB creates a Storage around an existing database handle.
// Used by tests.
func NewStorageWithDB(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{db: db, logger: logger}
}

func (s *Storage) CreateJob(ctx context.Context, job *model.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, name, status, active, frequency, due_at, last_run_at,
			search_queries, urls, notifications, last_report,
			created_by_auth_id, updated_by_auth_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11,
			$12, $13, $14, $15
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Name,
		job.Status,
		job.Active,
		job.Frequency,
		job.DueAt,
		job.LastRunAt,
		job.SearchQueries,
		job.URLs,
		job.Notifications,
		job.LastReport,
		job.CreatedByAuthID,
		job.UpdatedByAuthID,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// GetJobsByIDs loads multiple jobs at once, used to embed jobs into
// report listings.
func (s *Storage) GetJobsByIDs(ctx context.Context, jobIDs []string) ([]model.Job, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT `+jobColumns+` FROM jobs WHERE job_id IN (?)`, jobIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build jobs query: %w", err)
	}
	query = s.db.Rebind(query)

	var jobs []model.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get jobs: %w", err)
	}

	return jobs, nil
}

// JobFilter narrows job listings
type JobFilter struct {
	Status       string
	UpdatedAfter *time.Time
}

func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.UpdatedAfter != nil {
		query += fmt.Sprintf(" AND updated_at > $%d", argIdx)
		args = append(args, *filter.UpdatedAfter)
		argIdx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", argIdx)
	args = append(args, ListJobsLimit)

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

func (s *Storage) ReplaceJob(ctx context.Context, job *model.Job) error {
	query := `
		UPDATE jobs
		SET name = $2,
		    status = $3,
		    active = $4,
		    frequency = $5,
		    due_at = $6,
		    search_queries = $7,
		    urls = $8,
		    notifications = $9,
		    updated_by_auth_id = $10,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.Name,
		job.Status,
		job.Active,
		job.Frequency,
		job.DueAt,
		job.SearchQueries,
		job.URLs,
		job.Notifications,
		job.UpdatedByAuthID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	return s.requireJobRow(result, job.JobID)
}

// SetJobStatus applies a status verbatim. The recurring coercion happens
// in the handler before this is called.
func (s *Storage) SetJobStatus(ctx context.Context, jobID, status string) error {
	query := `UPDATE jobs SET status = $2, updated_at = NOW() WHERE job_id = $1`

	result, err := s.db.ExecContext(ctx, query, jobID, status)
	if err != nil {
		return fmt.Errorf("failed to set job status: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// ActivateJob reactivates a job, resetting its status to INIT.
func (s *Storage) ActivateJob(ctx context.Context, jobID, updatedBy string) error {
	query := `
		UPDATE jobs
		SET active = TRUE,
		    status = $2,
		    updated_by_auth_id = $3,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusInit, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to activate job: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// DeactivateJob marks a job inactive. The RUNNING/DEACTIVATED guard is
// checked by the handler before this is called.
func (s *Storage) DeactivateJob(ctx context.Context, jobID, updatedBy string) error {
	query := `
		UPDATE jobs
		SET active = FALSE,
		    status = $2,
		    updated_by_auth_id = $3,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusDeactivated, updatedBy)
	if err != nil {
		return fmt.Errorf("failed to deactivate job: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

func (s *Storage) DeleteJob(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// AddJobURL appends a target URL to the job's list.
func (s *Storage) AddJobURL(ctx context.Context, jobID, url string) error {
	query := `
		UPDATE jobs
		SET urls = urls || to_jsonb($2::text),
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, url)
	if err != nil {
		return fmt.Errorf("failed to add job url: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// RemoveJobURL removes every occurrence of the URL from the job's list.
func (s *Storage) RemoveJobURL(ctx context.Context, jobID, url string) error {
	query := `
		UPDATE jobs
		SET urls = urls - $2,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, url)
	if err != nil {
		return fmt.Errorf("failed to remove job url: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// AddSearchQuery appends one search query to the job's list.
func (s *Storage) AddSearchQuery(ctx context.Context, jobID string, sq model.SearchQuery) error {
	entry := model.SearchQueries{sq}
	query := `
		UPDATE jobs
		SET search_queries = search_queries || $2,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, entry)
	if err != nil {
		return fmt.Errorf("failed to add search query: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// RemoveSearchQuery removes the search query with the given id from the
// job's list.
func (s *Storage) RemoveSearchQuery(ctx context.Context, jobID, searchQueryID string) error {
	query := `
		UPDATE jobs
		SET search_queries = COALESCE(
		        (SELECT jsonb_agg(q)
		         FROM jsonb_array_elements(search_queries) q
		         WHERE q->>'search_query_id' <> $2),
		        '[]'::jsonb),
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, searchQueryID)
	if err != nil {
		return fmt.Errorf("failed to remove search query: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// ListDueJobs selects dispatch candidates: active jobs whose frequency is
// not disabled and whose due time has passed. Read-only; the batch cap
// bounds per-tick work.
func (s *Storage) ListDueJobs(ctx context.Context, now time.Time, limit int) ([]model.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE active = TRUE
		  AND frequency <> $1
		  AND due_at <= $2
		ORDER BY due_at ASC
		LIMIT $3
	`

	var jobs []model.Job
	err := s.db.SelectContext(ctx, &jobs, query, domain.FrequencyDisabled, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due jobs: %w", err)
	}

	return jobs, nil
}

// MarkJobDispatched records the run bookkeeping after a dispatch decision:
// last_run_at advances to the dispatch time, and a run-once job is
// disabled so it never re-dispatches. Performed regardless of the publish
// outcome; losing one dispatch is preferred over a duplicate-dispatch
// storm.
func (s *Storage) MarkJobDispatched(ctx context.Context, jobID string, runAt time.Time, disable bool) error {
	query := `
		UPDATE jobs
		SET last_run_at = $2,
		    frequency = CASE WHEN $3 THEN '0' ELSE frequency END,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, runAt, disable)
	if err != nil {
		return fmt.Errorf("failed to mark job dispatched: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

// SetJobLastReport records the summary of a completed report on the
// owning job.
func (s *Storage) SetJobLastReport(ctx context.Context, jobID string, lastReport model.LastReport) error {
	query := `
		UPDATE jobs
		SET last_report = $2,
		    updated_at = NOW()
		WHERE job_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, jobID, lastReport)
	if err != nil {
		return fmt.Errorf("failed to set job last report: %w", err)
	}

	return s.requireJobRow(result, jobID)
}

func (s *Storage) requireJobRow(result sql.Result, jobID string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		s.logger.Warn("Job update matched no rows",
			slog.String("job_id", jobID),
		)
		return domain.ErrJobNotFound
	}
	return nil
}
