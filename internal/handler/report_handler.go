package handler

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/dto"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/kuato/kuato-be/internal/storage"
)

// CreateReport handles POST /reports. The external worker opens a report
// when it picks a dispatched job up.
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "job_id is required"})
		return
	}

	// The job must exist; a report is meaningless without its owner.
	if _, err := h.storage.GetJobByID(c.Request.Context(), req.JobID); err != nil {
		respondError(c, err, "failed to get job")
		return
	}

	now := time.Now().UTC()
	report := &model.Report{
		ReportID:  uuid.New().String(),
		JobID:     req.JobID,
		Status:    domain.ReportStatusInit,
		Result:    model.ReportResult{},
		URLs:      model.ReportURLs{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.storage.CreateReport(c.Request.Context(), report); err != nil {
		h.logger.Error("Failed to create report", slog.Any("error", err))
		respondError(c, err, "failed to create report")
		return
	}

	h.logger.Info("Report created",
		slog.String("report_id", report.ReportID),
		slog.String("job_id", report.JobID),
	)

	c.JSON(http.StatusCreated, toReportDTO(report))
}

// ListReports handles GET /reports. With include_jobs=true each report
// embeds its owning job.
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.storage.ListReports(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list reports", slog.Any("error", err))
		respondError(c, err, "failed to list reports")
		return
	}

	out := make([]dto.ReportDTO, 0, len(reports))
	for i := range reports {
		out = append(out, toReportDTO(&reports[i]))
	}

	if c.Query("include_jobs") == "true" {
		h.embedJobs(c, reports, out)
	}

	c.JSON(http.StatusOK, gin.H{"reports": out, "count": len(out)})
}

func (h *ReportHandler) embedJobs(c *gin.Context, reports []model.Report, out []dto.ReportDTO) {
	seen := make(map[string]struct{}, len(reports))
	jobIDs := make([]string, 0, len(reports))
	for i := range reports {
		if _, ok := seen[reports[i].JobID]; ok {
			continue
		}
		seen[reports[i].JobID] = struct{}{}
		jobIDs = append(jobIDs, reports[i].JobID)
	}

	jobs, err := h.storage.GetJobsByIDs(c.Request.Context(), jobIDs)
	if err != nil {
		// Listing still works without the embedded jobs.
		h.logger.Error("Failed to embed jobs into report listing", slog.Any("error", err))
		return
	}

	byID := make(map[string]*model.Job, len(jobs))
	for i := range jobs {
		byID[jobs[i].JobID] = &jobs[i]
	}

	for i := range out {
		if job, ok := byID[out[i].JobID]; ok {
			d := toJobDTO(job)
			out[i].Job = &d
		}
	}
}

// ListReportsByJob handles GET /jobs/:id/reports with page/limit
// pagination.
func (h *ReportHandler) ListReportsByJob(c *gin.Context) {
	jobID := c.Param("id")

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > storage.ListReportsLimit {
		limit = 20
	}

	reports, err := h.storage.ListReportsByJob(c.Request.Context(), jobID, (page-1)*limit, limit)
	if err != nil {
		h.logger.Error("Failed to list reports for job",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		respondError(c, err, "failed to list reports")
		return
	}

	out := make([]dto.ReportDTO, 0, len(reports))
	for i := range reports {
		out = append(out, toReportDTO(&reports[i]))
	}

	c.JSON(http.StatusOK, gin.H{"reports": out, "count": len(out), "page": page})
}

// GetReport handles GET /reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.storage.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get report")
		return
	}

	c.JSON(http.StatusOK, toReportDTO(report))
}

// DeleteReport handles DELETE /reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	if err := h.storage.DeleteReport(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "failed to delete report")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// AddURL handles POST /reports/:id/urls. A finding with ERROR status
// bumps the report's error count.
func (h *ReportHandler) AddURL(c *gin.Context) {
	var req dto.AddReportURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}

	url := model.ReportURL{
		SearchQueryID: req.SearchQueryID,
		Name:          req.Name,
		SourcePageURL: req.SourcePageURL,
		FlagURL:       req.FlagURL,
		Severity:      req.Severity,
		Status:        req.Status,
		Element:       req.Element,
		CCID:          req.CCID,
		Reason:        req.Reason,
		Flag:          req.Flag,
	}

	errorDelta := 0
	if url.Status == domain.ReportURLStatusError {
		errorDelta = 1
	}

	if err := h.storage.AddReportURL(c.Request.Context(), c.Param("id"), url, errorDelta); err != nil {
		respondError(c, err, "failed to add report url")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// SetStatus handles PUT /reports/:id/status. The first transition into
// DONE kicks off the notification fan-out; repeating the DONE status is
// a no-op for notifications.
func (h *ReportHandler) SetStatus(c *gin.Context) {
	reportID := c.Param("id")

	var req dto.UpdateReportStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "status is required"})
		return
	}

	prevStatus, err := h.storage.SetReportStatus(c.Request.Context(), reportID, req.Status, req.Message)
	if err != nil {
		respondError(c, err, "failed to set report status")
		return
	}

	report, err := h.storage.GetReportByID(c.Request.Context(), reportID)
	if err != nil {
		respondError(c, err, "failed to get report")
		return
	}

	if req.Status == domain.ReportStatusDone && prevStatus != domain.ReportStatusDone {
		h.notifier.NotifyAsync(report)
	}

	c.JSON(http.StatusOK, toReportDTO(report))
}

// Export handles GET /reports/:id/export, serving the findings workbook
// as a download.
func (h *ReportHandler) Export(c *gin.Context) {
	report, err := h.storage.GetReportByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "failed to get report")
		return
	}

	path, err := h.exporter.Export(report.URLs, report.JobID)
	if err != nil {
		h.logger.Error("Failed to export report",
			slog.String("report_id", report.ReportID),
			slog.Any("error", err),
		)
		respondError(c, err, "failed to export report")
		return
	}

	c.FileAttachment(path, filepath.Base(path))
}
