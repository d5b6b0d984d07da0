package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Job is a scheduled monitoring task with a recurrence rule.
type Job struct {
	JobID           string        `db:"job_id"`
	Name            string        `db:"name"`
	Status          string        `db:"status"`
	Active          bool          `db:"active"`
	Frequency       string        `db:"frequency"`
	DueAt           time.Time     `db:"due_at"`
	LastRunAt       *time.Time    `db:"last_run_at"`
	SearchQueries   SearchQueries `db:"search_queries"`
	URLs            StringList    `db:"urls"`
	Notifications   Notifications `db:"notifications"`
	LastReport      LastReport    `db:"last_report"`
	CreatedByAuthID string        `db:"created_by_auth_id"`
	UpdatedByAuthID string        `db:"updated_by_auth_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// SearchQuery is one query a worker evaluates against the job's targets.
type SearchQuery struct {
	SearchQueryID   string `json:"search_query_id"`
	Name            string `json:"name"`
	Type            string `json:"type"`
	Query           string `json:"query"`
	Reason          string `json:"reason"`
	Severity        string `json:"severity"`
	CreatedByAuthID string `json:"created_by_auth_id"`
}

// Notification is one configured fan-out target.
type Notification struct {
	Type      string `json:"type"`
	Recipient string `json:"recipient"`
}

// LastReport is the summary of a job's most recent completed report.
type LastReport struct {
	Status     string `json:"status"`
	ErrorCount int    `json:"error_count"`
}

// Report is one execution record of a job. A report references its job;
// many reports exist per job.
type Report struct {
	ReportID  string       `db:"report_id"`
	JobID     string       `db:"job_id"`
	Status    string       `db:"status"`
	Result    ReportResult `db:"result"`
	URLs      ReportURLs   `db:"urls"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

// ReportResult is the aggregate outcome of a report.
type ReportResult struct {
	ErrorCount int    `json:"error_count"`
	Message    string `json:"message"`
}

// ReportURL is a single finding discovered during a job run.
type ReportURL struct {
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

// JSONB list/struct column types. sqlx scans jsonb through
// driver.Valuer/sql.Scanner.

type SearchQueries []SearchQuery

func (s SearchQueries) Value() (driver.Value, error) { return jsonbValue(s) }
func (s *SearchQueries) Scan(src any) error          { return jsonbScan(src, s) }

type Notifications []Notification

func (n Notifications) Value() (driver.Value, error) { return jsonbValue(n) }
func (n *Notifications) Scan(src any) error          { return jsonbScan(src, n) }

type ReportURLs []ReportURL

func (r ReportURLs) Value() (driver.Value, error) { return jsonbValue(r) }
func (r *ReportURLs) Scan(src any) error          { return jsonbScan(src, r) }

type StringList []string

func (l StringList) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *StringList) Scan(src any) error          { return jsonbScan(src, l) }

func (r ReportResult) Value() (driver.Value, error) { return jsonbValue(r) }
func (r *ReportResult) Scan(src any) error          { return jsonbScan(src, r) }

func (l LastReport) Value() (driver.Value, error) { return jsonbValue(l) }
func (l *LastReport) Scan(src any) error          { return jsonbScan(src, l) }

func jsonbValue(v any) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb column: %w", err)
	}
	return data, nil
}

func jsonbScan(src, dest any) error {
	if src == nil {
		return nil
	}

	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb column: %w", err)
	}
	return nil
}
