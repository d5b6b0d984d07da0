// Package scheduler runs the due-job scan and dispatch pipeline. A cron
// timer and the manual HTTP trigger both funnel into RunOnce, which is
// mutex-guarded so overlapping invocations serialize instead of racing
// over the same candidates.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kuato/kuato-be/internal/model"
	"github.com/robfig/cron/v3"
)

// JobStore is the persistence surface the pipeline needs.
type JobStore interface {
	ListDueJobs(ctx context.Context, now time.Time, limit int) ([]model.Job, error)
	MarkJobDispatched(ctx context.Context, jobID string, runAt time.Time, disable bool) error
}

// Queue publishes dispatch messages to the external work queue.
type Queue interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Config holds scheduler configuration
type Config struct {
	Logger          *slog.Logger
	Store           JobStore
	Queue           Queue
	CronSpec        string
	BatchSize       int
	DispatchTimeout time.Duration
}

// Scheduler owns the scan+dispatch pipeline and its periodic trigger.
type Scheduler struct {
	logger          *slog.Logger
	store           JobStore
	queue           Queue
	cronSpec        string
	batchSize       int
	dispatchTimeout time.Duration

	mu   sync.Mutex
	cron *cron.Cron
	now  func() time.Time
	wg   sync.WaitGroup
}

// New creates a scheduler. Start must be called to arm the cron trigger;
// RunOnce works without it.
func New(cfg *Config) *Scheduler {
	return &Scheduler{
		logger:          cfg.Logger,
		store:           cfg.Store,
		queue:           cfg.Queue,
		cronSpec:        cfg.CronSpec,
		batchSize:       cfg.BatchSize,
		dispatchTimeout: cfg.DispatchTimeout,
		cron:            cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		now:             time.Now,
	}
}

// Start arms the periodic trigger.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.cronSpec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("Scheduled dispatch pass failed",
				slog.Any("error", err),
			)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("Scheduler started",
		slog.String("cron_spec", s.cronSpec),
		slog.Int("batch_size", s.batchSize),
	)

	return nil
}

// Stop halts the cron trigger and waits for in-flight detached publishes.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// TriggerAsync runs one pipeline pass in the background. The manual HTTP
// trigger uses this; the caller's response never waits on the pass.
func (s *Scheduler) TriggerAsync() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.Error("Manual dispatch pass failed",
				slog.Any("error", err),
			)
		}
	}()
}

// RunOnce executes one scan+dispatch pass and returns how many jobs were
// dispatched. Concurrent calls serialize on the scheduler mutex.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	candidates, err := s.store.ListDueJobs(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for i := range candidates {
		// One candidate's failure must not abort the rest of the pass.
		if s.processCandidate(ctx, &candidates[i], now) {
			dispatched++
		}
	}

	if dispatched > 0 {
		s.logger.Info("Dispatch pass complete",
			slog.Int("candidates", len(candidates)),
			slog.Int("dispatched", dispatched),
		)
	}

	return dispatched, nil
}
