package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kuato/kuato-be/internal/domain"
	"github.com/kuato/kuato-be/internal/model"
)

// DispatchMessage is the payload placed on the work queue. External
// workers parse it to pick the job up.
type DispatchMessage struct {
	JobID string `json:"job_id"`
}

// processCandidate decides one candidate's eligibility and, when due,
// emits the dispatch and records run bookkeeping. Returns true when the
// job was dispatched.
//
// The bookkeeping update is applied whether or not the publish succeeds:
// the publish is fire-and-forget, and losing one window beats a
// duplicate-dispatch storm when the queue misbehaves.
func (s *Scheduler) processCandidate(ctx context.Context, job *model.Job, now time.Time) bool {
	r := domain.ParseFrequency(job.Frequency)
	if !r.IsDue(job.LastRunAt, now) {
		return false
	}

	s.publishDetached(job.JobID)

	disable := r.Kind == domain.RunOnce
	if err := s.store.MarkJobDispatched(ctx, job.JobID, now, disable); err != nil {
		s.logger.Error("Failed to record job dispatch",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return true
	}

	s.logger.Info("Job dispatched",
		slog.String("job_id", job.JobID),
		slog.String("frequency", job.Frequency),
		slog.Bool("run_once", disable),
	)

	return true
}

// publishDetached emits the dispatch message without awaiting the
// outcome. Failures are logged and never surfaced to the pipeline; the
// bounded timeout keeps a wedged broker from leaking goroutines forever.
func (s *Scheduler) publishDetached(jobID string) {
	body, err := json.Marshal(DispatchMessage{JobID: jobID})
	if err != nil {
		s.logger.Error("Failed to encode dispatch message",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.dispatchTimeout)
		defer cancel()

		if err := s.queue.PublishWithRetry(ctx, body, "application/json"); err != nil {
			s.logger.Error("Failed to publish dispatch message",
				slog.String("job_id", jobID),
				slog.Any("error", err),
			)
		}
	}()
}
