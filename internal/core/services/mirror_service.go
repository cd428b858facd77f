package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/cache"

	"go.uber.org/zap"
)

type copyKey struct {
	chatID    int64
	messageID int
}

type mirrorService struct {
	repo    ports.SettingsRepository
	copies  *cache.Cache[copyKey, struct{}]
	targets *cache.Cache[int64, bool]
	logger  *zap.SugaredLogger
}

// NewMirrorService builds the channel mirror lookup. Copies made by the bot
// are remembered for copyTTL; chat lookups are cached for targetTTL.
func NewMirrorService(
	repo ports.SettingsRepository,
	copyTTL, targetTTL time.Duration,
	logger *zap.SugaredLogger,
) ports.MirrorService {
	return &mirrorService{
		repo:    repo,
		copies:  cache.New[copyKey, struct{}](copyTTL),
		targets: cache.New[int64, bool](targetTTL),
		logger:  logger,
	}
}

func (s *mirrorService) Target(ctx context.Context, chatID int64, messageID int) (bool, error) {
	if _, own := s.copies.Take(copyKey{chatID, messageID}); own {
		return false, nil
	}

	return s.targets.GetOrLoad(ctx, chatID, func(ctx context.Context) (bool, error) {
		_, err := s.repo.FindByChatID(ctx, strconv.FormatInt(chatID, 10))
		if errors.Is(err, domain.ErrSettingsNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to look up mirror target: %w", err)
		}
		return true, nil
	})
}

func (s *mirrorService) RememberCopy(chatID int64, messageID int) {
	s.copies.Set(copyKey{chatID, messageID}, struct{}{})
}

func (s *mirrorService) Forget(chatIDs ...int64) {
	for _, id := range chatIDs {
		s.targets.Delete(id)
	}
}

func (s *mirrorService) Close() {
	s.copies.Stop()
	s.targets.Stop()
}
