package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/pkg/distributed"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSweeper struct {
	calls  atomic.Int32
	report *domain.SweepReport
	err    error
}

func (f *fakeSweeper) Sweep(context.Context) (*domain.SweepReport, error) {
	f.calls.Add(1)
	return f.report, f.err
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []*domain.SweepReport
}

func (f *fakeReporter) ReportSweep(_ context.Context, r *domain.SweepReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
	return nil
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reports)
}

func removedReport() *domain.SweepReport {
	return &domain.SweepReport{
		RunID:   "run-1",
		Removed: []domain.SweepEntry{{UserID: 1, Label: domain.UserLabel("Ann", 1)}},
	}
}

func newLockManager(t *testing.T) (*distributed.LockManager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return distributed.NewLockManager(client, "test:"), client
}

func TestRunOnce_ReportsRemovals(t *testing.T) {
	sweeper := &fakeSweeper{report: removedReport()}
	reporter := &fakeReporter{}
	s := NewScheduler(sweeper, reporter, nil, Config{ReportToOwners: true}, zap.NewNop().Sugar())

	report, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 1, reporter.count())
}

func TestRunOnce_NoReportWithoutRemovals(t *testing.T) {
	sweeper := &fakeSweeper{report: &domain.SweepReport{RunID: "run-2"}}
	reporter := &fakeReporter{}
	s := NewScheduler(sweeper, reporter, nil, Config{ReportToOwners: true}, zap.NewNop().Sugar())

	_, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, reporter.count())
}

func TestRunOnce_ReportingDisabled(t *testing.T) {
	reporter := &fakeReporter{}
	s := NewScheduler(&fakeSweeper{report: removedReport()}, reporter, nil, Config{}, zap.NewNop().Sugar())

	_, _, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, reporter.count())
}

func TestRunOnce_SweepErrorKeepsPartialReport(t *testing.T) {
	partial := removedReport()
	sweeper := &fakeSweeper{report: partial, err: errors.New("list failed")}
	reporter := &fakeReporter{}
	s := NewScheduler(sweeper, reporter, nil, Config{ReportToOwners: true}, zap.NewNop().Sugar())

	report, ran, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.True(t, ran)
	assert.Same(t, partial, report)
	assert.Equal(t, 0, reporter.count())
}

func TestRunOnce_SkipsWhenLockHeldElsewhere(t *testing.T) {
	locks, _ := newLockManager(t)
	other := locks.AcquireLock(sweepLockKey, time.Minute)
	acquired, err := other.TryLock(context.Background())
	require.NoError(t, err)
	require.True(t, acquired)
	defer func() { _ = other.Unlock(context.Background()) }()

	sweeper := &fakeSweeper{report: removedReport()}
	s := NewScheduler(sweeper, nil, locks, Config{}, zap.NewNop().Sugar())

	report, ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Nil(t, report)
	assert.Equal(t, int32(0), sweeper.calls.Load())
}

func TestRunOnce_ReleasesLock(t *testing.T) {
	locks, client := newLockManager(t)
	sweeper := &fakeSweeper{report: &domain.SweepReport{}}
	s := NewScheduler(sweeper, nil, locks, Config{}, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		_, ran, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		assert.True(t, ran)
	}

	n, err := client.Exists(context.Background(), "test:"+sweepLockKey).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeSweeper{}, nil, nil, Config{Schedule: "not a schedule"}, zap.NewNop().Sugar())
	assert.Error(t, s.Start(context.Background()))
}

func TestStart_RunsOnScheduleUntilStopped(t *testing.T) {
	sweeper := &fakeSweeper{report: &domain.SweepReport{}}
	s := NewScheduler(sweeper, nil, nil, Config{Schedule: "@every 1s"}, zap.NewNop().Sugar())

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
