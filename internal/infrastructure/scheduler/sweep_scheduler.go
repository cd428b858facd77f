package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/distributed"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepLockKey = "sweep"

// Config contains scheduler configuration
type Config struct {
	// Schedule is a cron spec, "@every 60s" by default.
	Schedule string
	// LockTTL bounds how long one instance may hold the sweep lock.
	LockTTL        time.Duration
	ReportToOwners bool
}

// Scheduler runs the expiry sweep on a cron schedule. A tick is skipped
// while the previous one is still running, and with a lock manager only one
// bot instance sweeps per tick.
type Scheduler struct {
	sweeper  ports.SweepService
	reporter ports.SweepReporter
	locks    *distributed.LockManager
	config   Config
	logger   *zap.SugaredLogger

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewScheduler creates a sweep scheduler. locks and reporter may be nil.
func NewScheduler(
	sweeper ports.SweepService,
	reporter ports.SweepReporter,
	locks *distributed.LockManager,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 60s"
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Scheduler{
		sweeper:  sweeper,
		reporter: reporter,
		locks:    locks,
		config:   cfg,
		logger:   logger,
	}
}

// Start registers the sweep job and blocks until ctx is done or Stop is
// called. Running ticks are waited for before it returns.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(log),
		cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
	)

	if _, err := c.AddFunc(s.config.Schedule, func() {
		if _, _, err := s.RunOnce(ctx); err != nil {
			s.logger.Errorw("scheduled sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule sweep %q: %w", s.config.Schedule, err)
	}

	s.mu.Lock()
	s.cron = c
	s.cancel = cancel
	s.mu.Unlock()

	c.Start()
	s.logger.Infow("sweep scheduler started", "schedule", s.config.Schedule, "distributed_lock", s.locks != nil)

	<-ctx.Done()
	<-c.Stop().Done()

	s.logger.Info("sweep scheduler stopped")
	return nil
}

// Stop stops the scheduler started with Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// RunOnce performs one sweep tick. ran is false when another instance holds
// the sweep lock.
func (s *Scheduler) RunOnce(ctx context.Context) (report *domain.SweepReport, ran bool, err error) {
	if s.locks != nil {
		lock := s.locks.AcquireLock(sweepLockKey, s.config.LockTTL)
		acquired, err := lock.TryLock(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			s.logger.Debugw("sweep lock held by another instance, skipping tick")
			return nil, false, nil
		}
		defer func() {
			// ctx may already be cancelled; release on a fresh one.
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Unlock(unlockCtx); err != nil {
				s.logger.Warnw("failed to release sweep lock", "error", err)
			}
		}()
	}

	report, err = s.sweeper.Sweep(ctx)
	if err != nil {
		return report, true, err
	}

	if s.config.ReportToOwners && s.reporter != nil && len(report.Removed) > 0 {
		if err := s.reporter.ReportSweep(ctx, report); err != nil {
			s.logger.Warnw("failed to report sweep", "run_id", report.RunID, "error", err)
		}
	}
	return report, true, nil
}
