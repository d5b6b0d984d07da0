package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/dto"
	"github.com/kuato/kuato-be/internal/export"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/kuato/kuato-be/internal/notifier"
	"github.com/kuato/kuato-be/internal/scheduler"
	"github.com/kuato/kuato-be/internal/storage"
)

// AuthIDHeader carries the caller identity used for audit fields.
// Authentication itself happens upstream.
const AuthIDHeader = "X-Auth-Id"

// HealthChecker reports readiness of a backing dependency.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Storage   *storage.Storage
	Scheduler *scheduler.Scheduler
	Notifier  *notifier.Notifier
	Exporter  *export.Generator
	DB        HealthChecker
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	scheduler *scheduler.Scheduler
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		scheduler: deps.Scheduler,
	}
}

// ReportHandler handles report-related HTTP requests
type ReportHandler struct {
	logger   *slog.Logger
	storage  *storage.Storage
	notifier *notifier.Notifier
	exporter *export.Generator
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(deps *Dependencies) *ReportHandler {
	return &ReportHandler{
		logger:   deps.Logger,
		storage:  deps.Storage,
		notifier: deps.Notifier,
		exporter: deps.Exporter,
	}
}

// respondError maps domain errors to HTTP responses: unknown ids to 404,
// guard and validation failures to 400, everything else to 500.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error()})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}

func toJobDTO(job *model.Job) dto.JobDTO {
	out := dto.JobDTO{
		JobID:           job.JobID,
		Name:            job.Name,
		Status:          job.Status,
		Active:          job.Active,
		Frequency:       job.Frequency,
		DueAt:           job.DueAt.Format(time.RFC3339),
		SearchQueries:   job.SearchQueries,
		URLs:            job.URLs,
		Notifications:   make([]dto.NotificationDTO, 0, len(job.Notifications)),
		CreatedByAuthID: job.CreatedByAuthID,
		UpdatedByAuthID: job.UpdatedByAuthID,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       job.UpdatedAt.Format(time.RFC3339),
	}

	if job.LastRunAt != nil {
		out.LastRunAt = job.LastRunAt.Format(time.RFC3339)
	}

	for _, n := range job.Notifications {
		out.Notifications = append(out.Notifications, dto.NotificationDTO{
			Type:      n.Type,
			Recipient: n.Recipient,
		})
	}

	if job.LastReport.Status != "" {
		out.LastReport = &dto.LastReportDTO{
			Status:     job.LastReport.Status,
			ErrorCount: job.LastReport.ErrorCount,
		}
	}

	if out.SearchQueries == nil {
		out.SearchQueries = []model.SearchQuery{}
	}
	if out.URLs == nil {
		out.URLs = []string{}
	}

	return out
}

func toReportDTO(report *model.Report) dto.ReportDTO {
	out := dto.ReportDTO{
		ReportID: report.ReportID,
		JobID:    report.JobID,
		Status:   report.Status,
		Result: dto.ReportResultDTO{
			ErrorCount: report.Result.ErrorCount,
			Message:    report.Result.Message,
		},
		URLs:      report.URLs,
		CreatedAt: report.CreatedAt.Format(time.RFC3339),
		UpdatedAt: report.UpdatedAt.Format(time.RFC3339),
	}

	if out.URLs == nil {
		out.URLs = []model.ReportURL{}
	}

	return out
}
