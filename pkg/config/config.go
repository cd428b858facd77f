package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Telegram struct {
		Token         string  `yaml:"token"`
		OwnerIDs      []int64 `yaml:"owner_ids"`
		LogChannelID  int64   `yaml:"log_channel_id"`
		Debug         bool    `yaml:"debug"`
		UpdateTimeout int     `yaml:"update_timeout"`
		Workers       int     `yaml:"workers"`
	} `yaml:"telegram"`

	Server struct {
		Address         string        `yaml:"address"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Mongo struct {
		Enabled           bool          `yaml:"enabled"`
		URI               string        `yaml:"uri"`
		Database          string        `yaml:"database"`
		UsersCollection   string        `yaml:"users_collection"`
		PremiumCollection string        `yaml:"premium_collection"`
		ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	} `yaml:"mongo"`

	Redis struct {
		Enabled   bool   `yaml:"enabled"`
		Address   string `yaml:"address"`
		Password  string `yaml:"password"`
		DB        int    `yaml:"db"`
		PoolSize  int    `yaml:"pool_size"`
		KeyPrefix string `yaml:"key_prefix"`
	} `yaml:"redis"`

	Sweep struct {
		Enabled        bool          `yaml:"enabled"`
		Schedule       string        `yaml:"schedule"`
		PerUserTimeout time.Duration `yaml:"per_user_timeout"`
		LockTTL        time.Duration `yaml:"lock_ttl"`
		ReportToOwners bool          `yaml:"report_to_owners"`
	} `yaml:"sweep"`

	Backup struct {
		Enabled        bool          `yaml:"enabled"`
		Directory      string        `yaml:"directory"`
		Interval       time.Duration `yaml:"interval"`
		Retain         int           `yaml:"retain"`
		RestoreOnStart bool          `yaml:"restore_on_start"`
	} `yaml:"backup"`

	Sessions struct {
		TTL time.Duration `yaml:"ttl"`
	} `yaml:"sessions"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		ServiceName string  `yaml:"service_name"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		Commands struct {
			PerSecond float64 `yaml:"per_second"`
			Burst     int     `yaml:"burst"`
		} `yaml:"commands"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"`
		} `yaml:"http"`
	} `yaml:"rate_limiting"`

	Resilience struct {
		Retry struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			InitialDelay time.Duration `yaml:"initial_delay"`
			MaxDelay     time.Duration `yaml:"max_delay"`
		} `yaml:"retry"`
		CircuitBreaker struct {
			FailureThreshold int           `yaml:"failure_threshold"`
			SuccessThreshold int           `yaml:"success_threshold"`
			Timeout          time.Duration `yaml:"timeout"`
		} `yaml:"circuit_breaker"`
	} `yaml:"resilience"`
}

// IsOwner reports whether userID is one of the configured owners.
func (c *Config) IsOwner(userID int64) bool {
	for _, id := range c.Telegram.OwnerIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Telegram
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram.token must not be empty")
	}
	if len(c.Telegram.OwnerIDs) == 0 {
		return fmt.Errorf("telegram.owner_ids must contain at least one id")
	}
	if c.Telegram.UpdateTimeout <= 0 {
		return fmt.Errorf("telegram.update_timeout must be > 0")
	}
	if c.Telegram.Workers <= 0 {
		return fmt.Errorf("telegram.workers must be > 0")
	}

	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.read_timeout and server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}

	// Mongo
	if c.Mongo.Enabled {
		if c.Mongo.URI == "" {
			return fmt.Errorf("mongo.uri must not be empty when mongo.enabled=true")
		}
		if c.Mongo.Database == "" || c.Mongo.UsersCollection == "" || c.Mongo.PremiumCollection == "" {
			return fmt.Errorf("mongo.database and collection names must not be empty")
		}
		if c.Mongo.ConnectTimeout <= 0 {
			return fmt.Errorf("mongo.connect_timeout must be > 0")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
	}

	// Sweep
	if c.Sweep.Enabled {
		if _, err := cron.ParseStandard(c.Sweep.Schedule); err != nil {
			return fmt.Errorf("sweep.schedule is invalid: %w", err)
		}
	}
	if c.Sweep.PerUserTimeout <= 0 {
		return fmt.Errorf("sweep.per_user_timeout must be > 0")
	}
	if c.Sweep.LockTTL <= 0 {
		return fmt.Errorf("sweep.lock_ttl must be > 0")
	}

	if c.Backup.Enabled {
		if c.Backup.Directory == "" {
			return fmt.Errorf("backup.directory must not be empty when backup.enabled=true")
		}
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be > 0")
		}
		if c.Backup.Retain < 1 {
			return fmt.Errorf("backup.retain must be >= 1")
		}
	}

	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("sessions.ttl must be > 0")
	}

	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be within [0, 1]")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.Commands.PerSecond <= 0 {
			return fmt.Errorf("rate_limiting.commands.per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.Commands.Burst <= 0 {
			return fmt.Errorf("rate_limiting.commands.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
	}

	// Resilience
	if c.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience.retry.max_attempts must be >= 1")
	}
	if c.Resilience.CircuitBreaker.FailureThreshold < 1 || c.Resilience.CircuitBreaker.SuccessThreshold < 1 {
		return fmt.Errorf("resilience.circuit_breaker thresholds must be >= 1")
	}
	if c.Resilience.CircuitBreaker.Timeout <= 0 {
		return fmt.Errorf("resilience.circuit_breaker.timeout must be > 0")
	}

	return nil
}

// Load reads configuration from a YAML file, applies defaults and env
// overrides and validates the result. A missing file is not an error: the
// defaults plus environment are used instead.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Telegram.UpdateTimeout = 30
	cfg.Telegram.Workers = 8

	cfg.Server.Address = ":8080"
	cfg.Server.ReadTimeout = 10 * time.Second
	cfg.Server.WriteTimeout = 10 * time.Second
	cfg.Server.ShutdownTimeout = 15 * time.Second

	cfg.Mongo.Enabled = true
	cfg.Mongo.URI = "mongodb://localhost:27017"
	cfg.Mongo.Database = "user_data"
	cfg.Mongo.UsersCollection = "users_data_db"
	cfg.Mongo.PremiumCollection = "premium_db"
	cfg.Mongo.ConnectTimeout = 10 * time.Second

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.PoolSize = 10
	cfg.Redis.KeyPrefix = "mirrorbot:"

	cfg.Sweep.Enabled = true
	cfg.Sweep.Schedule = "@every 60s"
	cfg.Sweep.PerUserTimeout = 5 * time.Second
	cfg.Sweep.LockTTL = 2 * time.Minute
	cfg.Sweep.ReportToOwners = false

	cfg.Backup.Enabled = false
	cfg.Backup.Directory = "data/backups"
	cfg.Backup.Interval = 10 * time.Minute
	cfg.Backup.Retain = 24
	cfg.Backup.RestoreOnStart = true

	cfg.Sessions.TTL = 5 * time.Minute

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.ServiceName = "mirrorbot"
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.Commands.PerSecond = 1
	cfg.RateLimiting.Commands.Burst = 5
	cfg.RateLimiting.HTTP.RequestsPerSecond = 20
	cfg.RateLimiting.HTTP.Burst = 40
	cfg.RateLimiting.HTTP.MaxConcurrent = 0

	cfg.Resilience.Retry.MaxAttempts = 3
	cfg.Resilience.Retry.InitialDelay = 100 * time.Millisecond
	cfg.Resilience.Retry.MaxDelay = 2 * time.Second
	cfg.Resilience.CircuitBreaker.FailureThreshold = 5
	cfg.Resilience.CircuitBreaker.SuccessThreshold = 2
	cfg.Resilience.CircuitBreaker.Timeout = 30 * time.Second

	return cfg
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// parseIDList accepts ids separated by spaces or commas.
func parseIDList(s string) ([]int64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) applyEnvOverrides() error {
	if token := firstEnv("MIRRORBOT_BOT_TOKEN", "BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if owners := firstEnv("MIRRORBOT_OWNER_IDS", "OWNER_ID"); owners != "" {
		ids, err := parseIDList(owners)
		if err != nil {
			return fmt.Errorf("owner ids from environment: %w", err)
		}
		c.Telegram.OwnerIDs = ids
	}
	if ch := firstEnv("MIRRORBOT_LOG_CHANNEL_ID", "LOG_GROUP"); ch != "" {
		id, err := strconv.ParseInt(ch, 10, 64)
		if err != nil {
			return fmt.Errorf("log channel id from environment: %w", err)
		}
		c.Telegram.LogChannelID = id
	}
	if uri := firstEnv("MIRRORBOT_MONGO_URI", "MONGO_DB"); uri != "" {
		c.Mongo.URI = uri
	}
	if addr := os.Getenv("MIRRORBOT_REDIS_ADDRESS"); addr != "" {
		c.Redis.Address = addr
		c.Redis.Enabled = true
	}
	if pw := os.Getenv("MIRRORBOT_REDIS_PASSWORD"); pw != "" {
		c.Redis.Password = pw
	}
	if addr := os.Getenv("MIRRORBOT_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	}
	if dir := os.Getenv("MIRRORBOT_BACKUP_DIR"); dir != "" {
		c.Backup.Directory = dir
		c.Backup.Enabled = true
	}
	if level := os.Getenv("MIRRORBOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}
