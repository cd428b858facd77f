package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/tracing"
	"mirrorbot/pkg/utils"

	"go.uber.org/zap"
)

// SweepConfig bounds the per-user work of a sweep.
type SweepConfig struct {
	PerUserTimeout time.Duration
	NotifyTimeout  time.Duration
}

func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		PerUserTimeout: 5 * time.Second,
		NotifyTimeout:  10 * time.Second,
	}
}

type sweepService struct {
	repo      ports.EntitlementRepository
	notifier  ports.ExpiryNotifier
	directory ports.UserDirectory
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
	config    SweepConfig
	now       func() time.Time
}

func NewSweepService(
	repo ports.EntitlementRepository,
	notifier ports.ExpiryNotifier,
	directory ports.UserDirectory,
	metrics ports.MetricsRecorder,
	config SweepConfig,
	logger *zap.SugaredLogger,
) ports.SweepService {
	return &sweepService{
		repo:      repo,
		notifier:  notifier,
		directory: directory,
		metrics:   NewMultiRecorder(metrics),
		logger:    logger,
		config:    config,
		now:       utils.Now,
	}
}

// Sweep removes every expired entitlement and notifies each removed user
// once. A failing user is force-expired and the sweep moves on; only
// cancellation of ctx stops the tick early, returning the partial report.
func (s *sweepService) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	report := &domain.SweepReport{
		RunID:     utils.NewRunID(),
		StartedAt: s.now(),
	}

	ctx, span := tracing.TraceSweep(ctx, report.RunID)
	defer span.End()

	start := time.Now()
	defer func() {
		report.FinishedAt = s.now()
		s.metrics.RecordSweep(time.Since(start), report)
		span.SetAttributes(
			tracing.RemovedKey.Int(len(report.Removed)),
			tracing.ActiveKey.Int(len(report.StillActive)),
			tracing.ForcedKey.Int(report.ForcedCount()),
		)
	}()

	ids, err := s.repo.ListUserIDs(ctx)
	if err != nil {
		tracing.RecordError(ctx, err)
		return report, fmt.Errorf("failed to list entitled users: %w", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			s.logger.Warnw("sweep cancelled",
				"run_id", report.RunID,
				"processed", len(report.Removed)+len(report.StillActive)+report.Skipped,
				"total", len(ids),
			)
			return report, err
		}
		s.sweepUser(ctx, id, report)
	}

	s.logger.Infow("sweep finished",
		"run_id", report.RunID,
		"removed", len(report.Removed),
		"active", len(report.StillActive),
		"forced", report.ForcedCount(),
		"skipped", report.Skipped,
	)
	return report, nil
}

func (s *sweepService) sweepUser(ctx context.Context, id domain.UserID, report *domain.SweepReport) {
	uctx, cancel := context.WithTimeout(ctx, s.config.PerUserTimeout)
	defer cancel()

	ent, err := s.repo.Get(uctx, id)
	switch {
	case errors.Is(err, domain.ErrNotEntitled):
		report.Skipped++
		return
	case err != nil:
		s.forceExpire(ctx, id, report, err)
		return
	}

	now := s.now()
	if !ent.ExpiredAt(now) {
		s.reportActive(uctx, id, ent, now, report)
		return
	}

	removed, err := s.repo.RemoveExpired(uctx, id, now)
	if err != nil {
		s.forceExpire(ctx, id, report, err)
		return
	}
	if !removed {
		// renewed after the read
		if ent, err := s.repo.Get(uctx, id); err == nil && !ent.ExpiredAt(now) {
			s.reportActive(uctx, id, ent, now, report)
		} else {
			report.Skipped++
		}
		return
	}
	s.metrics.RecordRemoval(removalExpired)

	name := s.lookupName(uctx, id)
	entry := domain.SweepEntry{UserID: id, Label: domain.UserLabel(name, id)}
	entry.Notified = s.notify(ctx, id, name)
	report.Removed = append(report.Removed, entry)
}

func (s *sweepService) reportActive(ctx context.Context, id domain.UserID, ent *domain.Entitlement, now time.Time, report *domain.SweepReport) {
	remaining := ent.ExpireAt.Sub(now)
	s.logger.Debugw("entitlement still active",
		"run_id", report.RunID,
		"user_id", id,
		"remaining", utils.FormatRemainingShort(remaining),
	)
	report.StillActive = append(report.StillActive, domain.SweepEntry{
		UserID:    id,
		Label:     domain.UserLabel(s.lookupName(ctx, id), id),
		Remaining: remaining,
	})
}

// forceExpire is the fallback for a user whose record could not be read or
// removed. The user is reported as removed even if the retry fails too; a
// cancelled tick leaves the record for the next run.
func (s *sweepService) forceExpire(ctx context.Context, id domain.UserID, report *domain.SweepReport, cause error) {
	if ctx.Err() != nil {
		return
	}

	fctx, cancel := context.WithTimeout(ctx, s.config.PerUserTimeout)
	defer cancel()

	err := s.repo.Remove(fctx, id)
	if err != nil {
		s.logger.Errorw("forced expiry failed",
			"user_id", id,
			"cause", cause,
			"error", err,
		)
	} else {
		s.logger.Warnw("entitlement force-expired",
			"user_id", id,
			"cause", cause,
		)
	}
	s.metrics.RecordRemoval(removalForced)

	report.Removed = append(report.Removed, domain.SweepEntry{
		UserID: id,
		Label:  domain.UnknownLabel(id),
		Forced: true,
	})
}

func (s *sweepService) lookupName(ctx context.Context, id domain.UserID) string {
	if s.directory == nil {
		return (*domain.User)(nil).DisplayName()
	}
	user, err := s.directory.Lookup(ctx, id)
	if err != nil {
		s.logger.Debugw("user lookup failed", "user_id", id, "error", err)
		return (*domain.User)(nil).DisplayName()
	}
	return user.DisplayName()
}

func (s *sweepService) notify(ctx context.Context, id domain.UserID, name string) bool {
	if s.notifier == nil {
		return false
	}

	nctx, cancel := context.WithTimeout(ctx, s.config.NotifyTimeout)
	defer cancel()

	err := s.notifier.NotifyExpired(nctx, id, name)
	s.metrics.RecordNotification("expiry", err)
	if err != nil {
		s.logger.Warnw("expiry notification failed",
			"user_id", id,
			"error", err,
		)
		return false
	}
	return true
}
