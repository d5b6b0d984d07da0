package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
)

const reportColumns = `report_id, job_id, status, result, urls, created_at, updated_at`

// ListReportsLimit caps report listings
const ListReportsLimit = 100

func (s *Storage) CreateReport(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (
			report_id, job_id, status, result, urls, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		report.ReportID,
		report.JobID,
		report.Status,
		report.Result,
		report.URLs,
		report.CreatedAt,
		report.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

func (s *Storage) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	var report model.Report
	query := `SELECT ` + reportColumns + ` FROM reports WHERE report_id = $1`

	err := s.db.GetContext(ctx, &report, query, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

func (s *Storage) ListReportsByJob(ctx context.Context, jobID string, offset, limit int) ([]model.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE job_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`

	var reports []model.Report
	err := s.db.SelectContext(ctx, &reports, query, jobID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for job: %w", err)
	}

	return reports, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]model.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1
	`

	var reports []model.Report
	err := s.db.SelectContext(ctx, &reports, query, ListReportsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

func (s *Storage) DeleteReport(ctx context.Context, reportID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE report_id = $1`, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrReportNotFound
	}

	return nil
}

// AddReportURL appends one finding to the report and bumps the error
// count when the finding's status is ERROR.
func (s *Storage) AddReportURL(ctx context.Context, reportID string, url model.ReportURL, errorDelta int) error {
	entry := model.ReportURLs{url}
	query := `
		UPDATE reports
		SET urls = urls || $2,
		    result = jsonb_set(
		        result,
		        '{error_count}',
		        to_jsonb(COALESCE((result->>'error_count')::int, 0) + $3)),
		    updated_at = NOW()
		WHERE report_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, reportID, entry, errorDelta)
	if err != nil {
		return fmt.Errorf("failed to add report url: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrReportNotFound
	}

	return nil
}

// SetReportStatus updates the report status (and result message when one
// is given) and returns the previous status, so the caller can tell
// whether this call actually transitioned the report to DONE.
func (s *Storage) SetReportStatus(ctx context.Context, reportID, status, message string) (string, error) {
	query := `
		WITH prev AS (
			SELECT status FROM reports WHERE report_id = $1
		)
		UPDATE reports
		SET status = $2,
		    result = CASE WHEN $3 <> ''
		             THEN jsonb_set(result, '{message}', to_jsonb($3::text))
		             ELSE result END,
		    updated_at = NOW()
		WHERE report_id = $1
		RETURNING (SELECT status FROM prev)
	`

	var prevStatus string
	err := s.db.QueryRowContext(ctx, query, reportID, status, message).Scan(&prevStatus)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrReportNotFound
		}
		return "", fmt.Errorf("failed to set report status: %w", err)
	}

	return prevStatus, nil
}
