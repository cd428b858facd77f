package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// RedisSettingsRepository stores settings in one hash per user. clean_words
// is kept as a JSON array; a chat id index serves the channel mirror.
type RedisSettingsRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSettingsRepository(client *redis.Client, prefix string) ports.SettingsRepository {
	return &RedisSettingsRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *RedisSettingsRepository) userKey(id domain.UserID) string {
	return r.prefix + "settings:user:" + id.String()
}

func (r *RedisSettingsRepository) chatKey(chatID string) string {
	return r.prefix + "settings:chat:" + chatID
}

func (r *RedisSettingsRepository) Get(ctx context.Context, userID domain.UserID) (*domain.UserSettings, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from Redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrSettingsNotFound
	}
	return decodeSettings(userID, fields)
}

func decodeSettings(userID domain.UserID, fields map[string]string) (*domain.UserSettings, error) {
	s := &domain.UserSettings{UserID: userID}
	for k, v := range fields {
		f := domain.SettingsField(k)
		if f == domain.FieldCleanWords {
			if err := json.Unmarshal([]byte(v), &s.CleanWords); err != nil {
				return nil, fmt.Errorf("failed to unmarshal clean words: %w", err)
			}
			continue
		}
		s.SetValue(f, v)
	}
	return s, nil
}

// watch runs fn in an optimistic transaction on the user key, retrying when
// a concurrent writer touched it.
func (r *RedisSettingsRepository) watch(ctx context.Context, userID domain.UserID, fn func(tx *redis.Tx) error) error {
	key := r.userKey(userID)
	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, fn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("settings update for %s kept conflicting", userID)
}

func (r *RedisSettingsRepository) Set(ctx context.Context, userID domain.UserID, field domain.SettingsField, value string) error {
	if !(&domain.UserSettings{}).SetValue(field, value) {
		return fmt.Errorf("unsupported settings field %q", field)
	}

	key := r.userKey(userID)
	err := r.watch(ctx, userID, func(tx *redis.Tx) error {
		var oldChat string
		if field == domain.FieldChatID {
			v, err := tx.HGet(ctx, key, string(field)).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			oldChat = v
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, string(field), value)
			if field == domain.FieldChatID {
				if oldChat != "" && oldChat != value {
					pipe.Del(ctx, r.chatKey(oldChat))
				}
				if value != "" {
					pipe.Set(ctx, r.chatKey(value), userID.String(), 0)
				}
			}
			return nil
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to set %s in Redis: %w", field, err)
	}
	return nil
}

func (r *RedisSettingsRepository) AddCleanWords(ctx context.Context, userID domain.UserID, words []string) ([]string, error) {
	key := r.userKey(userID)
	var merged []string

	err := r.watch(ctx, userID, func(tx *redis.Tx) error {
		var existing []string
		raw, err := tx.HGet(ctx, key, string(domain.FieldCleanWords)).Result()
		switch {
		case err == redis.Nil:
		case err != nil:
			return err
		default:
			if err := json.Unmarshal([]byte(raw), &existing); err != nil {
				return fmt.Errorf("failed to unmarshal clean words: %w", err)
			}
		}

		merged = domain.MergeWords(existing, words)
		data, err := json.Marshal(merged)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, string(domain.FieldCleanWords), data)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add clean words in Redis: %w", err)
	}
	return merged, nil
}

func (r *RedisSettingsRepository) Unset(ctx context.Context, userID domain.UserID, fields ...domain.SettingsField) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}

	key := r.userKey(userID)
	names := make([]string, len(fields))
	clearsChat := false
	for i, f := range fields {
		names[i] = string(f)
		if f == domain.FieldChatID {
			clearsChat = true
		}
	}

	var removed int64
	err := r.watch(ctx, userID, func(tx *redis.Tx) error {
		var chatID string
		if clearsChat {
			v, err := tx.HGet(ctx, key, string(domain.FieldChatID)).Result()
			if err != nil && err != redis.Nil {
				return err
			}
			chatID = v
		}

		var del *redis.IntCmd
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			del = pipe.HDel(ctx, key, names...)
			if chatID != "" {
				pipe.Del(ctx, r.chatKey(chatID))
			}
			return nil
		})
		if err != nil {
			return err
		}
		removed = del.Val()
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to unset settings in Redis: %w", err)
	}
	return removed > 0, nil
}

func (r *RedisSettingsRepository) FindByChatID(ctx context.Context, chatID string) (*domain.UserSettings, error) {
	if chatID == "" {
		return nil, domain.ErrSettingsNotFound
	}

	raw, err := r.client.Get(ctx, r.chatKey(chatID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrSettingsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up chat index: %w", err)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt chat index for %s: %w", chatID, err)
	}
	return r.Get(ctx, domain.UserID(id))
}
