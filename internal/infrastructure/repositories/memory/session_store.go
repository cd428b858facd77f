package memory

import (
	"context"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/cache"
)

// MemorySessionStore keeps conversation sessions in a TTL cache keyed by user.
type MemorySessionStore struct {
	sessions *cache.Cache[domain.UserID, *domain.ConversationSession]
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) ports.SessionStore {
	return &MemorySessionStore{
		sessions: cache.New[domain.UserID, *domain.ConversationSession](ttl),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Begin(ctx context.Context, session *domain.ConversationSession) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	s.sessions.SetWithTTL(session.UserID, session, ttl)
	return nil
}

func (s *MemorySessionStore) Take(ctx context.Context, userID domain.UserID) (*domain.ConversationSession, error) {
	session, ok := s.sessions.Take(userID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *MemorySessionStore) Cancel(ctx context.Context, userID domain.UserID) (bool, error) {
	return s.sessions.Delete(userID), nil
}

// Close stops the background cleanup of the cache.
func (s *MemorySessionStore) Close() error {
	s.sessions.Stop()
	return nil
}
