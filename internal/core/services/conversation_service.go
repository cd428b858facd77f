package services

import (
	"context"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/utils"

	"go.uber.org/zap"
)

type conversationService struct {
	store  ports.SessionStore
	ttl    time.Duration
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewConversationService(store ports.SessionStore, ttl time.Duration, logger *zap.SugaredLogger) ports.ConversationService {
	return &conversationService{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    utils.Now,
	}
}

// Begin starts a dialog for action, replacing any dialog the user had open.
func (s *conversationService) Begin(ctx context.Context, userID domain.UserID, action domain.Action) (*domain.ConversationSession, error) {
	if !action.Conversational() {
		return nil, fmt.Errorf("%w: %s does not take input", domain.ErrUnknownAction, action)
	}

	now := s.now()
	session := &domain.ConversationSession{
		ID:        utils.NewSessionID(),
		UserID:    userID,
		Action:    action,
		StartedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.store.Begin(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to begin conversation: %w", err)
	}

	s.logger.Debugw("conversation started",
		"user_id", userID,
		"action", action.String(),
		"session_id", session.ID,
	)
	return session, nil
}

// Take consumes the user's open dialog. Expired dialogs count as absent.
func (s *conversationService) Take(ctx context.Context, userID domain.UserID) (*domain.ConversationSession, error) {
	session, err := s.store.Take(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *conversationService) Cancel(ctx context.Context, userID domain.UserID) (bool, error) {
	cancelled, err := s.store.Cancel(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel conversation: %w", err)
	}
	return cancelled, nil
}
