package notifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	mu          sync.Mutex
	job         *model.Job
	lastReports map[string]model.LastReport
	getErr      error
}

func (s *fakeJobStore) GetJobByID(_ context.Context, jobID string) (*model.Job, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.job == nil || s.job.JobID != jobID {
		return nil, domain.ErrJobNotFound
	}
	j := *s.job
	return &j, nil
}

func (s *fakeJobStore) SetJobLastReport(_ context.Context, jobID string, lastReport model.LastReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastReports == nil {
		s.lastReports = make(map[string]model.LastReport)
	}
	s.lastReports[jobID] = lastReport
	return nil
}

type fakeExporter struct {
	mu    sync.Mutex
	calls int
	path  string
	err   error
}

func (e *fakeExporter) Export(_ []model.ReportURL, _ string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	return e.path, nil
}

type sentMail struct {
	recipient, subject, body, attachment string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) Send(recipient, subject, body, attachmentPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{recipient, subject, body, attachmentPath})
	return m.err
}

func newTestNotifier(store JobStore, exporter Exporter, mailer Mailer) *Notifier {
	return New(&Config{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:       store,
		Exporter:    exporter,
		Mailer:      mailer,
		SendTimeout: time.Second,
	})
}

func doneReport() *model.Report {
	return &model.Report{
		ReportID: "report-1",
		JobID:    "job-1",
		Status:   domain.ReportStatusDone,
		Result:   model.ReportResult{ErrorCount: 3, Message: "scan finished"},
		URLs: model.ReportURLs{
			{SearchQueryID: "sq-1", FlagURL: "https://example.com/broken", Status: "ERROR"},
		},
	}
}

func TestReportCompleted_FanOutPerMailTarget(t *testing.T) {
	store := &fakeJobStore{job: &model.Job{
		JobID: "job-1",
		Name:  "nightly scan",
		Notifications: model.Notifications{
			{Type: domain.NotificationTypeMail, Recipient: "a@example.com"},
			{Type: domain.NotificationTypeMail, Recipient: "b@example.com"},
		},
	}}
	exporter := &fakeExporter{path: "/tmp/report.xlsx"}
	mailer := &fakeMailer{}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	assert.Equal(t, 1, exporter.calls)
	require.Len(t, mailer.sent, 2)

	recipients := []string{mailer.sent[0].recipient, mailer.sent[1].recipient}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, recipients)
	assert.Equal(t, "report for nightly scan", mailer.sent[0].subject)
	assert.Equal(t, "3 errors. scan finished", mailer.sent[0].body)
	assert.Equal(t, "/tmp/report.xlsx", mailer.sent[0].attachment)

	assert.Equal(t, model.LastReport{Status: domain.ReportStatusDone, ErrorCount: 3}, store.lastReports["job-1"])
}

func TestReportCompleted_NonMailTargetsSkipped(t *testing.T) {
	store := &fakeJobStore{job: &model.Job{
		JobID: "job-1",
		Name:  "nightly scan",
		Notifications: model.Notifications{
			{Type: "WEBHOOK", Recipient: "https://hooks.example.com"},
			{Type: domain.NotificationTypeMail, Recipient: "a@example.com"},
		},
	}}
	exporter := &fakeExporter{path: "/tmp/report.xlsx"}
	mailer := &fakeMailer{}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "a@example.com", mailer.sent[0].recipient)
}

func TestReportCompleted_NoTargetsSkipsExport(t *testing.T) {
	store := &fakeJobStore{job: &model.Job{JobID: "job-1", Name: "quiet job"}}
	exporter := &fakeExporter{path: "/tmp/report.xlsx"}
	mailer := &fakeMailer{}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	assert.Equal(t, 0, exporter.calls)
	assert.Empty(t, mailer.sent)

	// The job summary still updates.
	assert.Equal(t, model.LastReport{Status: domain.ReportStatusDone, ErrorCount: 3}, store.lastReports["job-1"])
}

func TestReportCompleted_ExportFailureSwallowed(t *testing.T) {
	store := &fakeJobStore{job: &model.Job{
		JobID: "job-1",
		Name:  "nightly scan",
		Notifications: model.Notifications{
			{Type: domain.NotificationTypeMail, Recipient: "a@example.com"},
		},
	}}
	exporter := &fakeExporter{err: errors.New("disk full")}
	mailer := &fakeMailer{}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	assert.Empty(t, mailer.sent)
	// lastReport is unconditional.
	assert.Equal(t, model.LastReport{Status: domain.ReportStatusDone, ErrorCount: 3}, store.lastReports["job-1"])
}

func TestReportCompleted_MailFailureSwallowed(t *testing.T) {
	store := &fakeJobStore{job: &model.Job{
		JobID: "job-1",
		Name:  "nightly scan",
		Notifications: model.Notifications{
			{Type: domain.NotificationTypeMail, Recipient: "a@example.com"},
			{Type: domain.NotificationTypeMail, Recipient: "b@example.com"},
		},
	}}
	exporter := &fakeExporter{path: "/tmp/report.xlsx"}
	mailer := &fakeMailer{err: errors.New("smtp refused")}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	// Every send is attempted and fails; nothing aborts the fan-out.
	assert.Len(t, mailer.sent, 2)
	assert.Equal(t, model.LastReport{Status: domain.ReportStatusDone, ErrorCount: 3}, store.lastReports["job-1"])
}

func TestReportCompleted_UnknownJobLogged(t *testing.T) {
	store := &fakeJobStore{}
	exporter := &fakeExporter{}
	mailer := &fakeMailer{}
	n := newTestNotifier(store, exporter, mailer)

	n.ReportCompleted(context.Background(), doneReport())
	n.Wait()

	assert.Equal(t, 0, exporter.calls)
	assert.Empty(t, store.lastReports)
}
