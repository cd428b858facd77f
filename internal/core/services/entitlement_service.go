package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/utils"

	"go.uber.org/zap"
)

const (
	removalLazy     = "lazy"
	removalManual   = "manual"
	removalTransfer = "transfer"
	removalExpired  = "expired"
	removalForced   = "forced"
)

type entitlementService struct {
	repo    ports.EntitlementRepository
	metrics ports.MetricsRecorder
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewEntitlementService(
	repo ports.EntitlementRepository,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) ports.EntitlementService {
	return &entitlementService{
		repo:    repo,
		metrics: NewMultiRecorder(metrics),
		logger:  logger,
		now:     utils.Now,
	}
}

func (s *entitlementService) Grant(ctx context.Context, userID domain.UserID, expr domain.DurationExpression) (*domain.Grant, error) {
	d, err := expr.Duration()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expireAt := now.Add(d)
	if err := s.repo.Upsert(ctx, userID, expireAt); err != nil {
		return nil, fmt.Errorf("failed to grant entitlement: %w", err)
	}

	s.metrics.RecordGrant(expr.Unit)
	s.logger.Infow("entitlement granted",
		"user_id", userID,
		"duration", expr.String(),
		"expire_at", expireAt,
	)

	return &domain.Grant{
		UserID:    userID,
		Duration:  expr,
		GrantedAt: now,
		ExpireAt:  expireAt,
	}, nil
}

// Query reports the current status. An expired record is removed on read and
// reported as inactive; a failing removal is left to the sweep. A record
// renewed between the read and the removal is kept and read again.
func (s *entitlementService) Query(ctx context.Context, userID domain.UserID) (*domain.Status, error) {
	ent, err := s.repo.Get(ctx, userID)
	if errors.Is(err, domain.ErrNotEntitled) {
		return &domain.Status{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}

	now := s.now()
	if !ent.ExpiredAt(now) {
		return activeStatus(userID, ent, now), nil
	}

	removed, err := s.repo.RemoveExpired(ctx, userID, now)
	switch {
	case err != nil:
		s.logger.Warnw("failed to remove expired entitlement on read",
			"user_id", userID,
			"error", err,
		)
	case removed:
		s.metrics.RecordRemoval(removalLazy)
	default:
		ent, err = s.repo.Get(ctx, userID)
		if err == nil && !ent.ExpiredAt(now) {
			return activeStatus(userID, ent, now), nil
		}
	}
	return &domain.Status{UserID: userID}, nil
}

func activeStatus(userID domain.UserID, ent *domain.Entitlement, now time.Time) *domain.Status {
	return &domain.Status{
		UserID:    userID,
		Active:    true,
		ExpireAt:  *ent.ExpireAt,
		Remaining: ent.ExpireAt.Sub(now),
	}
}

// Transfer moves the expiry of from to to. The remove and the upsert are two
// separate store writes: a failure in between leaves neither user entitled,
// and the lost expiry is logged so it can be restored by hand.
func (s *entitlementService) Transfer(ctx context.Context, from, to domain.UserID) (*domain.Transfer, error) {
	if from == to {
		return nil, domain.ErrSelfTransfer
	}

	status, err := s.Query(ctx, from)
	if err != nil {
		return nil, err
	}
	if !status.Active {
		return nil, domain.ErrNotEntitled
	}

	if err := s.repo.Remove(ctx, from); err != nil {
		return nil, fmt.Errorf("failed to remove source entitlement: %w", err)
	}
	if err := s.repo.Upsert(ctx, to, status.ExpireAt); err != nil {
		s.logger.Errorw("transfer interrupted after source removal",
			"from", from,
			"to", to,
			"expire_at", status.ExpireAt,
			"error", err,
		)
		return nil, fmt.Errorf("failed to store target entitlement: %w", err)
	}

	s.metrics.RecordTransfer()
	s.metrics.RecordRemoval(removalTransfer)
	s.logger.Infow("entitlement transferred",
		"from", from,
		"to", to,
		"expire_at", status.ExpireAt,
	)

	return &domain.Transfer{
		From:          from,
		To:            to,
		ExpireAt:      status.ExpireAt,
		TransferredAt: s.now(),
	}, nil
}

func (s *entitlementService) Remove(ctx context.Context, userID domain.UserID) error {
	if _, err := s.repo.Get(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotEntitled) {
			return err
		}
		return fmt.Errorf("failed to get entitlement: %w", err)
	}

	if err := s.repo.Remove(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove entitlement: %w", err)
	}

	s.metrics.RecordRemoval(removalManual)
	s.logger.Infow("entitlement removed", "user_id", userID)
	return nil
}
