package http

import (
	"errors"
	"net/http"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/internal/core/services"
	"mirrorbot/internal/infrastructure/monitoring"
	apperrors "mirrorbot/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider exposes the in-process counters.
type StatsProvider interface {
	Snapshot() services.MetricsSnapshot
}

type OpsHandler struct {
	health       *monitoring.HealthChecker
	stats        StatsProvider
	entitlements ports.EntitlementService
	gatherer     prometheus.Gatherer
	startedAt    time.Time
}

var _ ports.OpsHandler = (*OpsHandler)(nil)

// NewOpsHandler creates the operations endpoints. A nil gatherer serves the
// default Prometheus registry.
func NewOpsHandler(
	health *monitoring.HealthChecker,
	stats StatsProvider,
	entitlements ports.EntitlementService,
	gatherer prometheus.Gatherer,
) *OpsHandler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &OpsHandler{
		health:       health,
		stats:        stats,
		entitlements: entitlements,
		gatherer:     gatherer,
		startedAt:    time.Now(),
	}
}

func (h *OpsHandler) SetupRoutes(router *gin.Engine, prometheusEnabled bool) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	if prometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/stats", h.Stats)
		api.GET("/premium/:user_id", h.PremiumStatus)
	}
}

// Health reports liveness; it never touches the stores.
func (h *OpsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": monitoring.StatusHealthy,
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *OpsHandler) Ready(c *gin.Context) {
	status := h.health.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (h *OpsHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

func (h *OpsHandler) PremiumStatus(c *gin.Context) {
	userID, err := domain.ParseUserID(c.Param("user_id"))
	if err != nil {
		_ = c.Error(apperrors.NewInvalidInputError("user_id must be numeric"))
		return
	}

	status, err := h.entitlements.Query(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			_ = c.Error(apperrors.NewStoreUnavailableError(err))
			return
		}
		_ = c.Error(apperrors.NewInternalError(err))
		return
	}

	body := gin.H{
		"user_id": userID,
		"active":  status.Active,
	}
	if status.Active {
		body["expire_at"] = status.ExpireAt
		body["remaining_seconds"] = int64(status.Remaining.Seconds())
	}
	c.JSON(http.StatusOK, body)
}
