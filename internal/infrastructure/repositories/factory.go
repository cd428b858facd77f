package repositories

import (
	"context"
	"errors"
	"fmt"

	"mirrorbot/internal/core/ports"
	infradistributed "mirrorbot/internal/infrastructure/distributed"
	"mirrorbot/internal/infrastructure/repositories/memory"
	mongorepo "mirrorbot/internal/infrastructure/repositories/mongo"
	redisrepo "mirrorbot/internal/infrastructure/repositories/redis"
	"mirrorbot/pkg/config"
	"mirrorbot/pkg/distributed"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Backend names the store the entitlement and settings repositories use.
type Backend string

const (
	BackendMongo  Backend = "mongo"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

// RepositoryFactory creates repositories with fallback support: MongoDB
// first, then Redis, then process memory.
type RepositoryFactory struct {
	cfg         *config.Config
	backend     Backend
	mongoClient *mongo.Client
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory connects to the configured stores. Connection failures
// are logged and fall through to the next backend.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		cfg:     cfg,
		backend: BackendMemory,
		logger:  logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			cfg.Redis.KeyPrefix,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, sessions and sweep lock stay in process",
				"error", err,
			)
		} else {
			factory.redisClient = client
			factory.backend = BackendRedis
		}
	}

	if cfg.Mongo.Enabled {
		client, err := mongorepo.NewMongoClient(cfg.Mongo.URI, cfg.Mongo.ConnectTimeout, logger)
		if err != nil {
			logger.Warnw("failed to connect to MongoDB, falling back",
				"fallback", factory.backend,
				"error", err,
			)
		} else {
			factory.mongoClient = client
			factory.backend = BackendMongo

			ctx, cancel := context.WithTimeout(context.Background(), cfg.Mongo.ConnectTimeout)
			defer cancel()
			if err := mongorepo.EnsureIndexes(ctx, factory.usersCollection()); err != nil {
				logger.Warnw("failed to ensure MongoDB indexes", "error", err)
			}
		}
	}

	logger.Infow("repository backend selected", "backend", factory.backend)
	return factory, nil
}

func (f *RepositoryFactory) usersCollection() *mongo.Collection {
	return f.mongoClient.Database(f.cfg.Mongo.Database).Collection(f.cfg.Mongo.UsersCollection)
}

func (f *RepositoryFactory) premiumCollection() *mongo.Collection {
	return f.mongoClient.Database(f.cfg.Mongo.Database).Collection(f.cfg.Mongo.PremiumCollection)
}

// Backend reports the store in use for entitlements and settings.
func (f *RepositoryFactory) Backend() Backend {
	return f.backend
}

// CreateEntitlementRepository creates an entitlement repository for the
// selected backend.
func (f *RepositoryFactory) CreateEntitlementRepository() ports.EntitlementRepository {
	switch f.backend {
	case BackendMongo:
		return mongorepo.NewMongoEntitlementRepository(f.premiumCollection())
	case BackendRedis:
		return redisrepo.NewRedisEntitlementRepository(f.redisClient, f.cfg.Redis.KeyPrefix, f.logger)
	default:
		return memory.NewMemoryEntitlementRepository()
	}
}

// CreateSettingsRepository creates a settings repository for the selected
// backend.
func (f *RepositoryFactory) CreateSettingsRepository() ports.SettingsRepository {
	switch f.backend {
	case BackendMongo:
		return mongorepo.NewMongoSettingsRepository(f.usersCollection())
	case BackendRedis:
		return redisrepo.NewRedisSettingsRepository(f.redisClient, f.cfg.Redis.KeyPrefix)
	default:
		return memory.NewMemorySettingsRepository()
	}
}

// CreateSessionStore keeps conversations in Redis when available so any
// instance can pick up a reply.
func (f *RepositoryFactory) CreateSessionStore() ports.SessionStore {
	if f.redisClient != nil {
		return redisrepo.NewRedisSessionStore(f.redisClient, f.cfg.Redis.KeyPrefix)
	}
	return memory.NewMemorySessionStore(f.cfg.Sessions.TTL)
}

// LockManager returns nil without Redis; a single instance needs no lock.
func (f *RepositoryFactory) LockManager() *distributed.LockManager {
	if f.redisClient == nil {
		return nil
	}
	return distributed.NewLockManager(f.redisClient, f.cfg.Redis.KeyPrefix+"lock:")
}

// CreateEventBus returns nil without Redis.
func (f *RepositoryFactory) CreateEventBus(instanceID string) *infradistributed.EventBus {
	if f.redisClient == nil {
		return nil
	}
	return infradistributed.NewEventBus(f.redisClient, f.cfg.Redis.KeyPrefix+"events", instanceID, f.logger)
}

// Close closes every open connection
func (f *RepositoryFactory) Close(ctx context.Context) error {
	var errs []error
	if err := mongorepo.CloseMongoClient(ctx, f.mongoClient); err != nil {
		errs = append(errs, fmt.Errorf("mongo: %w", err))
	}
	if err := redisrepo.CloseRedisClient(f.redisClient); err != nil {
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}
	return errors.Join(errs...)
}

// HealthCheck pings every connected store
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.mongoClient != nil {
		if err := f.mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			return fmt.Errorf("mongo: %w", err)
		}
	}
	if f.redisClient != nil {
		if err := f.redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
