package monitoring

import (
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// Counters
	grantsTotal        *prometheus.CounterVec
	transfersTotal     prometheus.Counter
	removalsTotal      *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec
	commandsTotal      *prometheus.CounterVec
	mirrorsTotal       *prometheus.CounterVec
	storeCallsTotal    *prometheus.CounterVec

	// Histograms
	sweepDuration     prometheus.Histogram
	commandDuration   *prometheus.HistogramVec
	storeCallDuration *prometheus.HistogramVec

	// Last sweep
	sweepRemoved     prometheus.Gauge
	sweepActive      prometheus.Gauge
	sweepForced      prometheus.Gauge
	lastSweepSeconds prometheus.Gauge
}

var _ ports.MetricsRecorder = (*PrometheusCollector)(nil)

// NewPrometheusCollector registers the bot metrics with reg. A nil reg uses
// the default registerer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusCollector{
		grantsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_premium_grants_total",
			Help: "Total number of premium grants by duration unit",
		}, []string{"unit"}),

		transfersTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "mirrorbot_premium_transfers_total",
			Help: "Total number of premium transfers",
		}),

		removalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_premium_removals_total",
			Help: "Total number of premium removals by reason",
		}, []string{"reason"}),

		notificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_notifications_total",
			Help: "Total number of user notifications by kind and result",
		}, []string{"kind", "result"}),

		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_commands_total",
			Help: "Total number of handled commands by result",
		}, []string{"command", "result"}),

		mirrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_mirrored_posts_total",
			Help: "Total number of mirrored channel posts",
		}, []string{"kind", "result"}),

		storeCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mirrorbot_store_calls_total",
			Help: "Total number of store calls by operation and result",
		}, []string{"operation", "result"}),

		sweepDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mirrorbot_sweep_duration_seconds",
			Help:    "Duration of expiry sweeps",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),

		commandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirrorbot_command_duration_seconds",
			Help:    "Duration of command handling",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),

		storeCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mirrorbot_store_call_duration_seconds",
			Help:    "Duration of store calls",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"operation"}),

		sweepRemoved: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirrorbot_sweep_last_removed",
			Help: "Users removed by the last sweep",
		}),

		sweepActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirrorbot_sweep_last_active",
			Help: "Users still entitled after the last sweep",
		}),

		sweepForced: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirrorbot_sweep_last_forced",
			Help: "Users force-expired by the last sweep",
		}),

		lastSweepSeconds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "mirrorbot_sweep_last_timestamp_seconds",
			Help: "Unix time the last sweep finished",
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (p *PrometheusCollector) RecordGrant(unit domain.Unit) {
	p.grantsTotal.WithLabelValues(string(unit)).Inc()
}

func (p *PrometheusCollector) RecordTransfer() {
	p.transfersTotal.Inc()
}

func (p *PrometheusCollector) RecordRemoval(reason string) {
	p.removalsTotal.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) RecordNotification(kind string, err error) {
	p.notificationsTotal.WithLabelValues(kind, result(err)).Inc()
}

func (p *PrometheusCollector) RecordSweep(duration time.Duration, report *domain.SweepReport) {
	p.sweepDuration.Observe(duration.Seconds())
	if report == nil {
		return
	}
	p.sweepRemoved.Set(float64(len(report.Removed)))
	p.sweepActive.Set(float64(len(report.StillActive)))
	p.sweepForced.Set(float64(report.ForcedCount()))
	p.lastSweepSeconds.SetToCurrentTime()
}

func (p *PrometheusCollector) RecordCommand(command string, duration time.Duration, err error) {
	p.commandsTotal.WithLabelValues(command, result(err)).Inc()
	p.commandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func (p *PrometheusCollector) RecordMirror(kind string, err error) {
	p.mirrorsTotal.WithLabelValues(kind, result(err)).Inc()
}

func (p *PrometheusCollector) RecordStoreCall(operation string, duration time.Duration, err error) {
	p.storeCallsTotal.WithLabelValues(operation, result(err)).Inc()
	p.storeCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
