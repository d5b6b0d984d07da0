package dto

import "github.com/kuato/kuato-be/internal/model"

// CreateReportRequest opens a new execution record for a job. The external
// worker calls this when it picks a dispatched job up.
type CreateReportRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

// AddReportURLRequest appends one finding to a report.
type AddReportURLRequest struct {
	SearchQueryID string `json:"search_query_id"`
	Name          string `json:"name"`
	SourcePageURL string `json:"source_page_url"`
	FlagURL       string `json:"flag_url"`
	Severity      string `json:"severity"`
	Status        string `json:"status"`
	Element       string `json:"element"`
	CCID          string `json:"ccid"`
	Reason        string `json:"reason"`
	Flag          string `json:"flag"`
}

// UpdateReportStatusRequest moves a report through its lifecycle. The
// optional message lands in the report result.
type UpdateReportStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

// ReportDTO is the wire form of a report.
type ReportDTO struct {
	ReportID  string            `json:"report_id"`
	JobID     string            `json:"job_id"`
	Status    string            `json:"status"`
	Result    ReportResultDTO   `json:"result"`
	URLs      []model.ReportURL `json:"urls"`
	Job       *JobDTO           `json:"job,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// ReportResultDTO is the aggregate outcome of a report.
type ReportResultDTO struct {
	ErrorCount int    `json:"error_count"`
	Message    string `json:"message"`
}
