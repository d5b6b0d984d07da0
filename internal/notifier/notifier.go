// Package notifier reacts to reports reaching their terminal status:
// it exports the findings, fans one mail out per configured recipient,
// and records the report summary on the owning job. The whole handler
// runs detached from the status-update request that triggered it.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
)

// JobStore is the persistence surface the notifier needs.
type JobStore interface {
	GetJobByID(ctx context.Context, jobID string) (*model.Job, error)
	SetJobLastReport(ctx context.Context, jobID string, lastReport model.LastReport) error
}

// Exporter produces the findings artifact attached to notification mails.
type Exporter interface {
	Export(urls []model.ReportURL, jobID string) (string, error)
}

// Mailer delivers one notification mail.
type Mailer interface {
	Send(recipient, subject, body, attachmentPath string) error
}

// Config holds notifier configuration
type Config struct {
	Logger      *slog.Logger
	Store       JobStore
	Exporter    Exporter
	Mailer      Mailer
	SendTimeout time.Duration
}

// Notifier handles report completion fan-out.
type Notifier struct {
	logger      *slog.Logger
	store       JobStore
	exporter    Exporter
	mailer      Mailer
	sendTimeout time.Duration
	wg          sync.WaitGroup
}

// New creates a Notifier.
func New(cfg *Config) *Notifier {
	return &Notifier{
		logger:      cfg.Logger,
		store:       cfg.Store,
		exporter:    cfg.Exporter,
		mailer:      cfg.Mailer,
		sendTimeout: cfg.SendTimeout,
	}
}

// NotifyAsync runs ReportCompleted in the background. The caller's
// response never waits on the fan-out.
func (n *Notifier) NotifyAsync(report *model.Report) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.ReportCompleted(context.Background(), report)
	}()
}

// Wait blocks until all detached work has finished. Used on shutdown and
// by tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// ReportCompleted handles one report that reached its terminal status.
// Export and mail failures are logged and swallowed; the job summary
// update happens regardless.
func (n *Notifier) ReportCompleted(ctx context.Context, report *model.Report) {
	job, err := n.store.GetJobByID(ctx, report.JobID)
	if err != nil {
		n.logger.Error("Failed to load job for completed report",
			slog.String("report_id", report.ReportID),
			slog.String("job_id", report.JobID),
			slog.Any("error", err),
		)
		return
	}

	if len(job.Notifications) > 0 {
		n.fanOut(job, report)
	}

	lastReport := model.LastReport{
		Status:     report.Status,
		ErrorCount: report.Result.ErrorCount,
	}
	if err := n.store.SetJobLastReport(ctx, job.JobID, lastReport); err != nil {
		n.logger.Error("Failed to record last report on job",
			slog.String("job_id", job.JobID),
			slog.String("report_id", report.ReportID),
			slog.Any("error", err),
		)
	}
}

func (n *Notifier) fanOut(job *model.Job, report *model.Report) {
	artifactPath, err := n.exporter.Export(report.URLs, report.JobID)
	if err != nil {
		n.logger.Error("Failed to export report findings",
			slog.String("report_id", report.ReportID),
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return
	}

	subject := fmt.Sprintf("report for %s", job.Name)
	body := fmt.Sprintf("%d errors. %s", report.Result.ErrorCount, report.Result.Message)

	for _, target := range job.Notifications {
		if target.Type != domain.NotificationTypeMail {
			continue
		}
		n.sendDetached(target.Recipient, subject, body, artifactPath)
	}
}

// sendDetached delivers one mail in the background with a bounded wait.
// A timeout is logged as a non-fatal downstream failure; the send
// goroutine finishes (or fails) on its own.
func (n *Notifier) sendDetached(recipient, subject, body, attachmentPath string) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		done := make(chan error, 1)
		go func() {
			done <- n.mailer.Send(recipient, subject, body, attachmentPath)
		}()

		select {
		case err := <-done:
			if err != nil {
				n.logger.Error("Failed to send notification mail",
					slog.String("recipient", recipient),
					slog.Any("error", err),
				)
			}
		case <-time.After(n.sendTimeout):
			n.logger.Error("Notification mail send timed out",
				slog.String("recipient", recipient),
				slog.Duration("timeout", n.sendTimeout),
			)
		}
	}()
}
