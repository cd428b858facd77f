package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"mirrorbot/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordGrant(domain.UnitDay)
	c.RecordGrant(domain.UnitDay)
	c.RecordRemoval("expired")
	c.RecordNotification("expiry", errors.New("blocked"))
	c.RecordCommand("add", 10*time.Millisecond, nil)
	c.RecordStoreCall("premium.get", time.Millisecond, nil)
	c.RecordSweep(time.Second, &domain.SweepReport{
		Removed: []domain.SweepEntry{
			{UserID: 1},
			{UserID: 2, Forced: true},
		},
		StillActive: []domain.SweepEntry{{UserID: 3}},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.grantsTotal.WithLabelValues("day")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.removalsTotal.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notificationsTotal.WithLabelValues("expiry", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandsTotal.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.storeCallsTotal.WithLabelValues("premium.get", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sweepRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweepActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sweepForced))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("store", func(context.Context) error { return nil }, time.Second)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, StatusHealthy, status.Checks["store"])
	assert.True(t, h.IsReady(context.Background()))

	h.AddCheck("telegram", func(context.Context) error { return errors.New("unauthorized") }, time.Second)
	status = h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "unauthorized", status.Checks["telegram"])
	assert.False(t, h.IsReady(context.Background()))
}

func TestHealthChecker_Timeout(t *testing.T) {
	h := NewHealthChecker()
	h.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, 10*time.Millisecond)

	status := h.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Checks["slow"], "deadline")
}
