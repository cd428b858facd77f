package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisSessionStore keeps one conversation per user under a key that
// expires with the session.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client, prefix string) ports.SessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisSessionStore) key(id domain.UserID) string {
	return s.prefix + "conv:" + id.String()
}

func (s *RedisSessionStore) Begin(ctx context.Context, session *domain.ConversationSession) error {
	ttl := session.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.UserID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session in Redis: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Take(ctx context.Context, userID domain.UserID) (*domain.ConversationSession, error) {
	data, err := s.client.GetDel(ctx, s.key(userID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take session from Redis: %w", err)
	}

	var session domain.ConversationSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Cancel(ctx context.Context, userID domain.UserID) (bool, error) {
	n, err := s.client.Del(ctx, s.key(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to cancel session in Redis: %w", err)
	}
	return n > 0, nil
}
