package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mirrorbot/internal/core/ports"
	"mirrorbot/internal/core/services"
	httphandlers "mirrorbot/internal/handlers/http"
	"mirrorbot/internal/handlers/telegram"
	infrabackup "mirrorbot/internal/infrastructure/backup"
	"mirrorbot/internal/infrastructure/distributed"
	"mirrorbot/internal/infrastructure/middleware"
	"mirrorbot/internal/infrastructure/monitoring"
	"mirrorbot/internal/infrastructure/reliability"
	repositories "mirrorbot/internal/infrastructure/repositories"
	"mirrorbot/internal/infrastructure/scheduler"
	"mirrorbot/pkg/backup"
	"mirrorbot/pkg/circuitbreaker"
	"mirrorbot/pkg/config"
	"mirrorbot/pkg/logger"
	"mirrorbot/pkg/retry"
	"mirrorbot/pkg/tracing"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// version is stamped into backups.
var version = "dev"

const (
	mirrorCopyTTL   = 10 * time.Minute
	mirrorTargetTTL = time.Minute
	userCacheTTL    = 30 * time.Minute

	// Added on top of the long-poll timeout for every Bot API request.
	apiRequestSlack = 15 * time.Second
)

func loadConfig() (*config.Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if path := os.Getenv("MIRRORBOT_CONFIG"); path != "" {
		return config.Load(path)
	}

	configPaths := []string{
		"configs/config.yaml",
		"/etc/mirrorbot/config.yaml",
		"config.yaml",
	}
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			return config.Load(path)
		}
	}
	return config.Load("")
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = zapLogger.Sync() }()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize repository factory
	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}

	// Metrics: in-process counters for /api/v1/stats plus Prometheus
	metricsService := services.NewMetricsService()
	var metrics ports.MetricsRecorder = metricsService
	if cfg.Monitoring.PrometheusEnabled {
		metrics = services.NewMultiRecorder(metricsService, monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer))
	}

	// Store resilience
	retryConfig := retry.DefaultConfig()
	retryConfig.MaxAttempts = cfg.Resilience.Retry.MaxAttempts
	retryConfig.InitialDelay = cfg.Resilience.Retry.InitialDelay
	retryConfig.MaxDelay = cfg.Resilience.Retry.MaxDelay
	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.FailureThreshold = cfg.Resilience.CircuitBreaker.FailureThreshold
	cbConfig.SuccessThreshold = cfg.Resilience.CircuitBreaker.SuccessThreshold
	cbConfig.Timeout = cfg.Resilience.CircuitBreaker.Timeout

	entitlementRepo := reliability.NewEntitlementRepositoryWrapper(
		repoFactory.CreateEntitlementRepository(), retryConfig, cbConfig, metrics, log)
	settingsRepo := reliability.NewSettingsRepositoryWrapper(
		repoFactory.CreateSettingsRepository(), retryConfig, cbConfig, metrics, log)
	sessionStore := repoFactory.CreateSessionStore()

	// Premium store snapshots
	var snapshotter *infrabackup.Snapshotter
	if cfg.Backup.Enabled {
		storage, err := backup.NewFileStorage(cfg.Backup.Directory)
		if err != nil {
			log.Fatalw("failed to create backup storage", "error", err)
		}
		backupService := backup.NewBackupService(storage, version)

		if cfg.Backup.RestoreOnStart && repoFactory.Backend() == repositories.BackendMemory {
			restoreCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, err := infrabackup.NewRestoreService(backupService, entitlementRepo, log).
				RestoreLatest(restoreCtx, infrabackup.RestoreOptions{})
			cancel()
			if err != nil {
				log.Errorw("failed to restore premium store from backup", "error", err)
			}
		}

		snapshotter = infrabackup.NewSnapshotter(backupService, entitlementRepo, infrabackup.Config{
			Interval: cfg.Backup.Interval,
			Retain:   cfg.Backup.Retain,
		}, log)
	}

	// Telegram client
	apiClient := &http.Client{
		Timeout: time.Duration(cfg.Telegram.UpdateTimeout)*time.Second + apiRequestSlack,
	}
	api, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.Token, tgbotapi.APIEndpoint, apiClient)
	if err != nil {
		log.Fatalw("failed to create Telegram bot", "error", err)
	}
	api.Debug = cfg.Telegram.Debug
	log.Infow("authorized on Telegram", "username", api.Self.UserName, "bot_id", api.Self.ID)

	gateway := telegram.NewGateway(api, api.Self.ID, cfg.Telegram.OwnerIDs, cfg.Telegram.LogChannelID, userCacheTTL, log)
	defer gateway.Close()

	// Initialize services
	entitlementService := services.NewEntitlementService(entitlementRepo, metrics, log)
	sweepConfig := services.DefaultSweepConfig()
	sweepConfig.PerUserTimeout = cfg.Sweep.PerUserTimeout
	sweepService := services.NewSweepService(entitlementRepo, gateway, gateway, metrics, sweepConfig, log)
	mirrorService := services.NewMirrorService(settingsRepo, mirrorCopyTTL, mirrorTargetTTL, log)
	defer mirrorService.Close()
	targetFeed := distributed.NewTargetFeed(
		settingsRepo,
		mirrorService.Forget,
		repoFactory.CreateEventBus(uuid.NewString()),
		log,
	)
	settingsService := services.NewSettingsService(targetFeed, gateway, log)
	conversationService := services.NewConversationService(sessionStore, cfg.Sessions.TTL, log)

	handler := telegram.NewHandler(telegram.Dependencies{
		API:           api,
		Gateway:       gateway,
		Entitlements:  entitlementService,
		Sweeper:       sweepService,
		Settings:      settingsService,
		Conversations: conversationService,
		Mirror:        mirrorService,
		Limiter:       middleware.NewCommandLimiter(cfg),
		Metrics:       metrics,
		Config:        cfg,
		Logger:        zapLogger,
	})
	bot := telegram.NewBot(api, handler, cfg.Telegram.Workers, cfg.Telegram.UpdateTimeout, log)

	sweepScheduler := scheduler.NewScheduler(
		sweepService,
		gateway,
		repoFactory.LockManager(),
		scheduler.Config{
			Schedule:       cfg.Sweep.Schedule,
			LockTTL:        cfg.Sweep.LockTTL,
			ReportToOwners: cfg.Sweep.ReportToOwners,
		},
		log,
	)

	// Health checks
	health := monitoring.NewHealthChecker()
	health.AddCheck("store", repoFactory.HealthCheck, 2*time.Second)
	health.AddCheck("premium_breaker", func(context.Context) error {
		if s := entitlementRepo.GetCircuitBreakerStats(); s.State == circuitbreaker.StateOpen {
			return errors.New("premium store circuit open")
		}
		return nil
	}, 0)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(),
		middleware.ErrorHandlerMiddleware(log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)
	httphandlers.NewOpsHandler(health, metricsService, entitlementService, prometheus.DefaultGatherer).
		SetupRoutes(router, cfg.Monitoring.PrometheusEnabled)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(gctx)
	})

	g.Go(func() error {
		return targetFeed.Run(gctx)
	})

	if snapshotter != nil {
		g.Go(func() error {
			return snapshotter.Start(gctx)
		})
	}

	if cfg.Sweep.Enabled {
		g.Go(func() error {
			return sweepScheduler.Start(gctx)
		})
	}

	g.Go(func() error {
		log.Infow("starting ops server", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("error during server shutdown", "error", err)
			return srv.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Errorw("mirrorbot stopped with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := repoFactory.Close(shutdownCtx); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("mirrorbot stopped")
}
