package redis

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const currentSchemaVersion = 2

// Migration represents a key layout migration
type Migration struct {
	Version int
	Up      func(ctx context.Context, client *redis.Client, prefix string) error
}

func schemaVersionKey(prefix string) string {
	return prefix + "schema:version"
}

// Migrate runs all pending migrations
func Migrate(ctx context.Context, client *redis.Client, prefix string, logger *zap.SugaredLogger) error {
	currentVersion, err := getSchemaVersion(ctx, client, prefix)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	if currentVersion >= currentSchemaVersion {
		if logger != nil {
			logger.Infow("schema is up to date",
				"current_version", currentVersion,
				"target_version", currentSchemaVersion,
			)
		}
		return nil
	}

	for _, migration := range getMigrations() {
		if migration.Version <= currentVersion {
			continue
		}
		if logger != nil {
			logger.Infow("running migration", "version", migration.Version)
		}

		if err := migration.Up(ctx, client, prefix); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := setSchemaVersion(ctx, client, prefix, migration.Version); err != nil {
			return fmt.Errorf("failed to update schema version: %w", err)
		}
	}

	if logger != nil {
		logger.Infow("all migrations completed", "final_version", currentSchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, client *redis.Client, prefix string) (int, error) {
	val, err := client.Get(ctx, schemaVersionKey(prefix)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func setSchemaVersion(ctx context.Context, client *redis.Client, prefix string, version int) error {
	return client.Set(ctx, schemaVersionKey(prefix), version, 0).Err()
}

// scanKeys collects every key matching pattern.
func scanKeys(ctx context.Context, client *redis.Client, pattern string) ([]string, error) {
	var keys []string
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func getMigrations() []Migration {
	return []Migration{
		{
			// Index every premium record in the user set used by the sweep.
			Version: 1,
			Up: func(ctx context.Context, client *redis.Client, prefix string) error {
				keys, err := scanKeys(ctx, client, prefix+"premium:*")
				if err != nil {
					return err
				}
				usersKey := prefix + premiumUsersSuffix
				for _, k := range keys {
					if k == usersKey {
						continue
					}
					id := strings.TrimPrefix(k, prefix+"premium:")
					if err := client.SAdd(ctx, usersKey, id).Err(); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			// Rebuild the chat id -> user index from the settings hashes.
			Version: 2,
			Up: func(ctx context.Context, client *redis.Client, prefix string) error {
				keys, err := scanKeys(ctx, client, prefix+"settings:user:*")
				if err != nil {
					return err
				}
				for _, k := range keys {
					chatID, err := client.HGet(ctx, k, "chat_id").Result()
					if err == redis.Nil || chatID == "" {
						continue
					}
					if err != nil {
						return err
					}
					userID := strings.TrimPrefix(k, prefix+"settings:user:")
					if err := client.Set(ctx, prefix+"settings:chat:"+chatID, userID, 0).Err(); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
