package dto

import "github.com/kuato/kuato-be/internal/model"

// CreateJobRequest creates a monitoring job. At least one search query is
// required. URLsString is a newline-separated convenience form used by the
// frontend; it is split into the job's target URL list.
type CreateJobRequest struct {
	Name          string               `json:"name"`
	Frequency     string               `json:"frequency"`
	DueAt         string               `json:"due_at"`
	Active        *bool                `json:"active"`
	IsInstant     string               `json:"is_instant"`
	IsRunOnce     string               `json:"is_run_once"`
	URLsString    string               `json:"urls_string"`
	SearchQueries []SearchQueryRequest `json:"search_queries"`
	Notifications []NotificationDTO    `json:"notifications"`
}

// UpdateJobRequest replaces a job. Same normalization rules as create.
type UpdateJobRequest struct {
	Name          string               `json:"name"`
	Frequency     string               `json:"frequency"`
	DueAt         string               `json:"due_at"`
	Active        *bool                `json:"active"`
	IsInstant     string               `json:"is_instant"`
	IsRunOnce     string               `json:"is_run_once"`
	URLsString    string               `json:"urls_string"`
	SearchQueries []SearchQueryRequest `json:"search_queries"`
	Notifications []NotificationDTO    `json:"notifications"`
}

// SearchQueryRequest carries one search query on create/update/append.
type SearchQueryRequest struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Query    string `json:"query"`
	Reason   string `json:"reason"`
	Severity string `json:"severity"`
}

// NotificationDTO carries one notification target.
type NotificationDTO struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
}

// AddJobURLRequest adds or removes a target URL on a job.
type AddJobURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// DeleteSearchQueryRequest removes a search query from a job.
type DeleteSearchQueryRequest struct {
	SearchQueryID string `json:"search_query_id" binding:"required"`
}

// UpdateJobStatusRequest sets a job's lifecycle status. The external
// worker reports its progress through this.
type UpdateJobStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// JobDTO is the wire form of a job.
type JobDTO struct {
	JobID           string              `json:"job_id"`
	Name            string              `json:"name"`
	Status          string              `json:"status"`
	Active          bool                `json:"active"`
	Frequency       string              `json:"frequency"`
	DueAt           string              `json:"due_at"`
	LastRunAt       string              `json:"last_run_at,omitempty"`
	SearchQueries   []model.SearchQuery `json:"search_queries"`
	URLs            []string            `json:"urls"`
	Notifications   []NotificationDTO   `json:"notifications"`
	LastReport      *LastReportDTO      `json:"last_report,omitempty"`
	CreatedByAuthID string              `json:"created_by_auth_id"`
	UpdatedByAuthID string              `json:"updated_by_auth_id,omitempty"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

// LastReportDTO summarizes a job's most recent completed report.
type LastReportDTO struct {
	Status     string `json:"status"`
	ErrorCount int    `json:"error_count"`
}
