package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/dto"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/kuato/kuato-be/internal/storage"
)

// CreateJob handles POST /jobs
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if len(req.SearchQueries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "at least one search query is required"})
		return
	}

	authID := c.GetHeader(AuthIDHeader)
	now := time.Now().UTC()

	job := &model.Job{
		JobID:           uuid.New().String(),
		Name:            req.Name,
		Status:          domain.JobStatusInit,
		Active:          true,
		Frequency:       resolveFrequency(req.Frequency, req.IsRunOnce),
		DueAt:           now,
		SearchQueries:   buildSearchQueries(req.SearchQueries, authID),
		URLs:            splitURLs(req.URLsString),
		Notifications:   buildNotifications(req.Notifications),
		CreatedByAuthID: authID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if job.Name == "" {
		job.Name = fmt.Sprintf("Unnamed Job %s", now.Format(time.RFC3339))
	}

	if req.Active != nil {
		job.Active = *req.Active
	}

	if req.DueAt != "" {
		dueAt, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "due_at must be RFC3339"})
			return
		}
		job.DueAt = dueAt
	}

	// A run-now job is armed to be picked up by the very next dispatch
	// pass regardless of the requested due time.
	if req.IsInstant == domain.ScheduleRunNow {
		job.Active = true
		job.DueAt = now
		job.Status = domain.JobStatusRunning
	}

	if err := h.storage.CreateJob(c.Request.Context(), job); err != nil {
		h.logger.Error("Failed to create job", slog.Any("error", err))
		respondError(c, err, "failed to create job")
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", job.JobID),
		slog.String("name", job.Name),
		slog.String("frequency", job.Frequency),
	)

	c.JSON(http.StatusCreated, toJobDTO(job))
}

// UpdateJob handles PUT /jobs/:id. The update is a full replace with the
// same normalization as create: the search-query list is required, and
// urls and notifications come from the request body, not the stored row.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	jobID := c.Param("id")

	var req dto.UpdateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	if len(req.SearchQueries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "at least one search query is required"})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	authID := c.GetHeader(AuthIDHeader)
	now := time.Now().UTC()

	job.Name = req.Name
	if job.Name == "" {
		job.Name = fmt.Sprintf("Unnamed Job %s", now.Format(time.RFC3339))
	}
	job.Frequency = resolveFrequency(req.Frequency, req.IsRunOnce)
	job.SearchQueries = buildSearchQueries(req.SearchQueries, authID)
	job.URLs = splitURLs(req.URLsString)
	job.Notifications = buildNotifications(req.Notifications)
	if req.Active != nil {
		job.Active = *req.Active
	}
	if req.DueAt != "" {
		dueAt, err := time.Parse(time.RFC3339, req.DueAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "due_at must be RFC3339"})
			return
		}
		job.DueAt = dueAt
	}
	if req.IsInstant == domain.ScheduleRunNow {
		job.Active = true
		job.DueAt = now
		job.Status = domain.JobStatusRunning
	}
	job.UpdatedByAuthID = authID

	if err := h.storage.ReplaceJob(c.Request.Context(), job); err != nil {
		respondError(c, err, "failed to update job")
		return
	}

	updated, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	c.JSON(http.StatusOK, toJobDTO(updated))
}

// ListJobs handles GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := storage.JobFilter{
		Status:       c.Query("status"),
		UpdatedAfter: jobDateCutoff(c.Query("job_date"), time.Now().UTC()),
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.Any("error", err))
		respondError(c, err, "failed to list jobs")
		return
	}

	out := make([]dto.JobDTO, 0, len(jobs))
	for i := range jobs {
		out = append(out, toJobDTO(&jobs[i]))
	}

	c.JSON(http.StatusOK, gin.H{"jobs": out, "count": len(out)})
}

// GetJob handles GET /jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.storage.GetJobByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ActivateJob handles POST /jobs/:id/activate
func (h *JobHandler) ActivateJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	if !domain.CanActivate(job.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "can not activate a running or deactivated job"})
		return
	}

	if err := h.storage.ActivateJob(c.Request.Context(), jobID, c.GetHeader(AuthIDHeader)); err != nil {
		respondError(c, err, "failed to activate job")
		return
	}

	h.logger.Info("Job activated", slog.String("job_id", jobID))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// DeactivateJob handles POST /jobs/:id/deactivate
func (h *JobHandler) DeactivateJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	if !domain.CanDeactivate(job.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "can not deactivate a running or already deactivated job"})
		return
	}

	if err := h.storage.DeactivateJob(c.Request.Context(), jobID, c.GetHeader(AuthIDHeader)); err != nil {
		respondError(c, err, "failed to deactivate job")
		return
	}

	h.logger.Info("Job deactivated", slog.String("job_id", jobID))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// DeleteJob handles DELETE /jobs/:id
func (h *JobHandler) DeleteJob(c *gin.Context) {
	jobID := c.Param("id")

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	if !domain.CanDelete(job.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "can not delete a running job"})
		return
	}

	if err := h.storage.DeleteJob(c.Request.Context(), jobID); err != nil {
		respondError(c, err, "failed to delete job")
		return
	}

	h.logger.Info("Job deleted", slog.String("job_id", jobID))
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// SetJobStatus handles PUT /jobs/:id/status. A COMPLETED status on a
// recurring job is stored as RECURRING so the job stays eligible for the
// next window.
func (h *JobHandler) SetJobStatus(c *gin.Context) {
	jobID := c.Param("id")

	var req dto.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	status := domain.FinalJobStatus(req.Status, job.Frequency)
	if err := h.storage.SetJobStatus(c.Request.Context(), jobID, status); err != nil {
		respondError(c, err, "failed to set job status")
		return
	}

	job.Status = status
	c.JSON(http.StatusOK, toJobDTO(job))
}

// AddURL handles POST /jobs/:id/urls
func (h *JobHandler) AddURL(c *gin.Context) {
	var req dto.AddJobURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "url is required"})
		return
	}

	if err := h.storage.AddJobURL(c.Request.Context(), c.Param("id"), req.URL); err != nil {
		respondError(c, err, "failed to add url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// DeleteURL handles DELETE /jobs/:id/urls
func (h *JobHandler) DeleteURL(c *gin.Context) {
	var req dto.AddJobURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "url is required"})
		return
	}

	if err := h.storage.RemoveJobURL(c.Request.Context(), c.Param("id"), req.URL); err != nil {
		respondError(c, err, "failed to remove url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// AddSearchQuery handles POST /jobs/:id/search-queries
func (h *JobHandler) AddSearchQuery(c *gin.Context) {
	var req dto.SearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	sq := model.SearchQuery{
		SearchQueryID:   uuid.New().String(),
		Name:            req.Name,
		Type:            req.Type,
		Query:           req.Query,
		Reason:          req.Reason,
		Severity:        req.Severity,
		CreatedByAuthID: c.GetHeader(AuthIDHeader),
	}

	if err := h.storage.AddSearchQuery(c.Request.Context(), c.Param("id"), sq); err != nil {
		respondError(c, err, "failed to add search query")
		return
	}

	c.JSON(http.StatusOK, gin.H{"search_query_id": sq.SearchQueryID})
}

// DeleteSearchQuery handles DELETE /jobs/:id/search-queries
func (h *JobHandler) DeleteSearchQuery(c *gin.Context) {
	var req dto.DeleteSearchQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "search_query_id is required"})
		return
	}

	if err := h.storage.RemoveSearchQuery(c.Request.Context(), c.Param("id"), req.SearchQueryID); err != nil {
		respondError(c, err, "failed to remove search query")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// TriggerScan handles POST /jobs/scan. The pass runs in the background;
// the response does not reflect its outcome.
func (h *JobHandler) TriggerScan(c *gin.Context) {
	h.scheduler.TriggerAsync()
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// resolveFrequency normalizes the create/update frequency inputs. The
// run-once and disabled options win over the explicit frequency string,
// and an empty frequency means run once.
func resolveFrequency(frequency, isRunOnce string) string {
	switch isRunOnce {
	case domain.FrequencyOptRunOnce:
		return domain.FrequencyRunOnce
	case domain.FrequencyOptDisabled:
		return domain.FrequencyDisabled
	}
	if frequency == "" {
		return domain.FrequencyRunOnce
	}
	return frequency
}

// splitURLs turns the newline-separated URL list into the stored form.
func splitURLs(urlsString string) model.StringList {
	out := model.StringList{}
	for _, line := range strings.Split(urlsString, "\n") {
		if u := strings.TrimSpace(line); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func buildSearchQueries(reqs []dto.SearchQueryRequest, authID string) model.SearchQueries {
	out := make(model.SearchQueries, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, model.SearchQuery{
			SearchQueryID:   uuid.New().String(),
			Name:            r.Name,
			Type:            r.Type,
			Query:           r.Query,
			Reason:          r.Reason,
			Severity:        r.Severity,
			CreatedByAuthID: authID,
		})
	}
	return out
}

func buildNotifications(reqs []dto.NotificationDTO) model.Notifications {
	out := make(model.Notifications, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, model.Notification{
			Type:      r.Type,
			Recipient: r.Recipient,
		})
	}
	return out
}

// jobDateCutoff maps the job_date filter keyword to an updated-after
// cutoff. Unknown keywords mean no cutoff.
func jobDateCutoff(keyword string, now time.Time) *time.Time {
	var cutoff time.Time
	switch keyword {
	case "TODAY":
		cutoff = now.Truncate(24 * time.Hour)
	case "YESTERDAY":
		cutoff = now.Truncate(24 * time.Hour).Add(-24 * time.Hour)
	case "LAST_WEEK":
		cutoff = now.AddDate(0, 0, -7)
	case "LAST_MONTH":
		cutoff = now.AddDate(0, -1, 0)
	default:
		return nil
	}
	return &cutoff
}
