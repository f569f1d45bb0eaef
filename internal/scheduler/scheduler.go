package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"gradschool/internal/config"
	"gradschool/internal/service"
)

// Sweeper retries the record sync for completed defenses that were not projected
type Sweeper interface {
	SweepPending(ctx context.Context, limit int) (service.SweepResult, error)
}

// Scheduler handles periodic tasks
type Scheduler struct {
	sweeper Sweeper
	config  *config.SchedulerConfig
	cron    *cron.Cron
	timeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(sweeper Sweeper, cfg *config.SchedulerConfig) *Scheduler {
	logger := cronLogger{}
	return &Scheduler{
		sweeper: sweeper,
		config:  cfg,
		cron:    cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		timeout: 5 * time.Minute,
	}
}

// Start registers the enabled tasks and starts the cron runner
func (s *Scheduler) Start() error {
	slog.Info("Starting scheduler", "sync_sweep_enabled", s.config.EnableSyncSweep, "sync_sweep_cron", s.config.SyncSweepCron)

	if s.config.EnableSyncSweep {
		if _, err := s.cron.AddFunc(s.config.SyncSweepCron, s.sweep); err != nil {
			return fmt.Errorf("invalid sync sweep schedule %q: %w", s.config.SyncSweepCron, err)
		}
	}

	s.cron.Start()
	slog.Info("Scheduler started")
	return nil
}

// Stop stops the cron runner and waits for running tasks to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	slog.Info("Stopping scheduler")
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		slog.Warn("Scheduler stop timed out with tasks still running")
	}
}

// sweep runs one sync retry pass
func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.sweeper.SweepPending(ctx, s.config.SyncSweepBatch)
	if err != nil {
		slog.Error("Sync sweep failed", "error", err)
		return
	}
	slog.Debug("Sync sweep completed",
		"attempted", result.Attempted,
		"synced", result.Synced,
		"failed", result.Failed,
		"duration", time.Since(start).String(),
	)
}

// cronLogger routes cron's own logging to slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
