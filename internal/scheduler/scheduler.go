// Package scheduler wraps robfig/cron and triggers crawl runs on a fixed
// interval, with one run fired immediately at startup.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/openroles/careers-crawler/internal/aggregator"
)

// Runner is the unit of scheduled work, satisfied by the orchestrator.
type Runner interface {
	Run(ctx context.Context) (aggregator.RunSummary, error)
}

// Scheduler fires a Runner on a cron interval. Overlapping runs are
// skipped: a tick that lands while a run is still in flight is dropped.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	spec   string
	logger *zap.Logger

	mu      sync.Mutex
	running bool
}

// New creates a Scheduler firing every intervalHours hours.
func New(runner Runner, intervalHours int, logger *zap.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = 24
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:   cron.New(),
		runner: runner,
		spec:   fmt.Sprintf("@every %dh", intervalHours),
		logger: logger,
	}
}

// Start registers the job and starts the scheduler. One run is fired
// immediately so a fresh deployment does not wait for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("register crawl schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	go s.runOnce(ctx)
	return nil
}

// Stop halts the cron loop. In-flight runs finish on their own; Run
// observes the context for cooperative shutdown.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("previous crawl still running, skipping tick")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx.Err() != nil {
		return
	}
	summary, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled crawl failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled crawl finished",
		zap.String("run_id", summary.RunID),
		zap.Int("total_jobs", summary.TotalJobs),
		zap.Int("error_count", summary.ErrorCount),
	)
}
