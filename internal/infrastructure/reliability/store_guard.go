package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mirrorbot/internal/core/domain"
	"mirrorbot/internal/core/ports"
	"mirrorbot/pkg/circuitbreaker"
	"mirrorbot/pkg/retry"
	"mirrorbot/pkg/tracing"

	"go.uber.org/zap"
)

// expectedErrors are regular outcomes of store calls, not failures.
var expectedErrors = []error{
	domain.ErrNotEntitled,
	domain.ErrSettingsNotFound,
	domain.ErrSessionNotFound,
	context.Canceled,
}

// storeGuard runs store calls through retry and a circuit breaker and maps
// failures to domain.ErrStoreUnavailable.
type storeGuard struct {
	name           string
	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
	metrics        ports.MetricsRecorder
	logger         *zap.SugaredLogger
}

func newStoreGuard(
	name string,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *storeGuard {
	retryConfig.NonRetryableErrors = append(append([]error(nil), retryConfig.NonRetryableErrors...), expectedErrors...)
	retryConfig.NonRetryableErrors = append(retryConfig.NonRetryableErrors, circuitbreaker.ErrOpen, context.DeadlineExceeded)
	retryConfig.OnRetry = func(attempt int, delay time.Duration, err error) {
		logger.Warnw("retrying store call",
			"store", name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}
	cbConfig.IgnoredErrors = append(append([]error(nil), cbConfig.IgnoredErrors...), expectedErrors...)

	g := &storeGuard{
		name:           name,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(name, cbConfig),
		metrics:        metrics,
		logger:         logger,
	}

	g.circuitBreaker.OnStateChange(func(name string, from, to circuitbreaker.State) {
		logger.Infow("circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	})
	return g
}

func isExpected(err error) bool {
	for _, e := range expectedErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

func (g *storeGuard) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := tracing.TraceDatabaseOperation(ctx, op, g.name)
	defer span.End()

	start := time.Now()
	call := func(ctx context.Context) error {
		return g.circuitBreaker.Execute(ctx, fn)
	}

	var err error
	if g.retryConfig.Enabled {
		err = retry.Do(ctx, g.retryConfig, call)
	} else {
		err = call(ctx)
	}

	if g.metrics != nil {
		g.metrics.RecordStoreCall(g.name+"."+op, time.Since(start), err)
	}
	if err == nil || isExpected(err) {
		return err
	}

	tracing.RecordError(ctx, err)
	return fmt.Errorf("%w: %s.%s: %w", domain.ErrStoreUnavailable, g.name, op, err)
}

func (g *storeGuard) stats() circuitbreaker.Stats {
	return g.circuitBreaker.GetStats()
}
