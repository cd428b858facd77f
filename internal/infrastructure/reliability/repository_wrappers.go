package reliability

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/circuitbreaker"
	"mirrorbot/pkg/retry"

	"go.uber.org/zap"
)

// EntitlementRepositoryWrapper wraps an EntitlementRepository with retry
// logic and a circuit breaker
type EntitlementRepositoryWrapper struct {
	repo  ports.EntitlementRepository
	guard *storeGuard
}

func NewEntitlementRepositoryWrapper(
	repo ports.EntitlementRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *EntitlementRepositoryWrapper {
	return &EntitlementRepositoryWrapper{
		repo:  repo,
		guard: newStoreGuard("premium", retryConfig, cbConfig, metrics, logger),
	}
}

func (w *EntitlementRepositoryWrapper) Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error) {
	var ent *domain.Entitlement
	err := w.guard.do(ctx, "get", func(ctx context.Context) error {
		var err error
		ent, err = w.repo.Get(ctx, userID)
		return err
	})
	return ent, err
}

func (w *EntitlementRepositoryWrapper) Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error {
	return w.guard.do(ctx, "upsert", func(ctx context.Context) error {
		return w.repo.Upsert(ctx, userID, expireAt)
	})
}

func (w *EntitlementRepositoryWrapper) Remove(ctx context.Context, userID domain.UserID) error {
	return w.guard.do(ctx, "remove", func(ctx context.Context) error {
		return w.repo.Remove(ctx, userID)
	})
}

func (w *EntitlementRepositoryWrapper) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	var removed bool
	err := w.guard.do(ctx, "remove_expired", func(ctx context.Context) error {
		var err error
		removed, err = w.repo.RemoveExpired(ctx, userID, now)
		return err
	})
	return removed, err
}

func (w *EntitlementRepositoryWrapper) ListUserIDs(ctx context.Context) ([]domain.UserID, error) {
	var ids []domain.UserID
	err := w.guard.do(ctx, "list", func(ctx context.Context) error {
		var err error
		ids, err = w.repo.ListUserIDs(ctx)
		return err
	})
	return ids, err
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (w *EntitlementRepositoryWrapper) GetCircuitBreakerStats() circuitbreaker.Stats {
	return w.guard.stats()
}

// SettingsRepositoryWrapper wraps a SettingsRepository with retry logic and
// a circuit breaker
type SettingsRepositoryWrapper struct {
	repo  ports.SettingsRepository
	guard *storeGuard
}

func NewSettingsRepositoryWrapper(
	repo ports.SettingsRepository,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *SettingsRepositoryWrapper {
	return &SettingsRepositoryWrapper{
		repo:  repo,
		guard: newStoreGuard("settings", retryConfig, cbConfig, metrics, logger),
	}
}

func (w *SettingsRepositoryWrapper) Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error) {
	var s *domain.UserSettings
	err := w.guard.do(ctx, "get", func(ctx context.Context) error {
		var err error
		s, err = w.repo.Get(ctx, userID)
		return err
	})
	return s, err
}

func (w *SettingsRepositoryWrapper) Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error {
	return w.guard.do(ctx, "set", func(ctx context.Context) error {
		return w.repo.Set(ctx, userID, field, value)
	})
}

func (w *SettingsRepositoryWrapper) AddCleanWords(ctx context.Context, userID domain.UserID, words []string) ([]string, error) {
	var merged []string
	err := w.guard.do(ctx, "add_clean_words", func(ctx context.Context) error {
		var err error
		merged, err = w.repo.AddCleanWords(ctx, userID, words)
		return err
	})
	return merged, err
}

func (w *SettingsRepositoryWrapper) Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error) {
	var changed bool
	err := w.guard.do(ctx, "unset", func(ctx context.Context) error {
		var err error
		changed, err = w.repo.Unset(ctx, userID, fields...)
		return err
	})
	return changed, err
}

func (w *SettingsRepositoryWrapper) FindByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	var s *domain.UserSettings
	err := w.guard.do(ctx, "find_by_chat", func(ctx context.Context) error {
		var err error
		s, err = w.repo.FindByChatID(ctx, chatID)
		return err
	})
	return s, err
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (w *SettingsRepositoryWrapper) GetCircuitBreakerStats() circuitbreaker.Stats {
	return w.guard.stats()
}
