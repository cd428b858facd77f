package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const premiumUsersSuffix = "premium:users"

type RedisEntitlementRepository struct {
	client *redis.Client
	prefix string
	logger *zap.SugaredLogger
}

func NewRedisEntitlementRepository(client *redis.Client, prefix string, logger *zap.SugaredLogger) ports.EntitlementRepository {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &RedisEntitlementRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *RedisEntitlementRepository) key(id domain.UserID) string {
	return r.prefix + "premium:" + id.String()
}

func (r *RedisEntitlementRepository) usersKey() string {
	return r.prefix + premiumUsersSuffix
}

func (r *RedisEntitlementRepository) Get(ctx context.Context, userID domain.UserID) (*domain.Entitlement, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrNotEntitled
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement from Redis: %w", err)
	}
	if data == "" {
		return nil, domain.ErrNotEntitled
	}

	expireAt, err := time.Parse(time.RFC3339Nano, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expiry %q: %w", data, err)
	}
	return &domain.Entitlement{UserID: userID, ExpireAt: &expireAt}, nil
}

func (r *RedisEntitlementRepository) Upsert(ctx context.Context, userID domain.UserID, expireAt time.Time) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(userID), expireAt.UTC().Format(time.RFC3339Nano), 0)
		pipe.SAdd(ctx, r.usersKey(), userID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set entitlement in Redis: %w", err)
	}
	return nil
}

func (r *RedisEntitlementRepository) Remove(ctx context.Context, userID domain.UserID) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(userID))
		pipe.SRem(ctx, r.usersKey(), userID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete entitlement from Redis: %w", err)
	}
	return nil
}

// RemoveExpired deletes the record under WATCH so a concurrent Upsert
// aborts the delete.
func (r *RedisEntitlementRepository) RemoveExpired(ctx context.Context, userID domain.UserID, now time.Time) (bool, error) {
	key := r.key(userID)
	removed := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if data != "" {
			expireAt, err := time.Parse(time.RFC3339Nano, data)
			if err != nil {
				return fmt.Errorf("failed to parse expiry %q: %w", data, err)
			}
			if expireAt.After(now) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, r.usersKey(), userID.String())
			return nil
		})
		if err != nil {
			return err
		}
		removed = true
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete expired entitlement from Redis: %w", err)
	}
	return removed, nil
}

// ListUserIDs returns the indexed users. Members that are not user ids are
// dropped from the index.
func (r *RedisEntitlementRepository) ListUserIDs(ctx context.Context) ([]domain.UserID, error) {
	members, err := r.client.SMembers(ctx, r.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entitled users: %w", err)
	}

	ids := make([]domain.UserID, 0, len(members))
	var invalid []interface{}
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			invalid = append(invalid, m)
			continue
		}
		ids = append(ids, domain.UserID(id))
	}

	if len(invalid) > 0 {
		r.logger.Warnw("dropping invalid members from premium index",
			"key", r.usersKey(),
			"members", invalid,
		)
		if err := r.client.SRem(ctx, r.usersKey(), invalid...).Err(); err != nil {
			r.logger.Warnw("failed to prune premium index", "error", err)
		}
	}
	return ids, nil
}
