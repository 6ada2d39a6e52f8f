package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/attempt"
	"github.com/sells-group/retrieval-cli/internal/monitoring"
	"github.com/sells-group/retrieval-cli/internal/resilience"
	"github.com/sells-group/retrieval-cli/internal/store"
	"github.com/sells-group/retrieval-cli/internal/validate"
	"github.com/sells-group/retrieval-cli/pkg/addressnorm"
)

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "memory":
		st = store.NewMemory()
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "retrieval.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	if cfg.Store.FailureRate > 0 || cfg.Store.LatencyMs > 0 {
		zap.L().Info("simulating store failures",
			zap.Float64("failure_rate", cfg.Store.FailureRate),
			zap.Int("latency_ms", cfg.Store.LatencyMs),
		)
		st = store.NewFlaky(st, cfg.Store.FailureRate, time.Duration(cfg.Store.LatencyMs)*time.Millisecond)
	}
	return st, nil
}

func newEngine(st store.Store) *attempt.Engine {
	return attempt.NewEngine(st,
		attempt.WithUser(cfg.Engine.User),
		attempt.WithBulkConcurrency(cfg.Engine.BulkConcurrency),
		attempt.WithValidator(validate.New(validate.WithMinAddressLength(cfg.Address.MinLength))),
	)
}

func newAddressClient() addressnorm.Client {
	return addressnorm.NewClient(
		addressnorm.WithMinLength(cfg.Address.MinLength),
		addressnorm.WithRateLimit(cfg.Address.RatePerSec),
		addressnorm.WithLatency(time.Duration(cfg.Address.LatencyMs)*time.Millisecond),
		addressnorm.WithBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Address.BreakerFailures,
			ResetTimeout:     time.Duration(cfg.Address.BreakerResetSecs) * time.Second,
		}),
	)
}

// saveRetry is the retry policy for user-initiated saves.
func saveRetry(operation string) resilience.RetryConfig {
	rc := resilience.FromSettings(cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoffMs, cfg.Retry.MaxBackoffMs)
	rc.ShouldRetry = attempt.IsRetryable
	rc.OnRetry = resilience.RetryLogger(operation)
	return rc
}

func newChecker(st store.Store) *monitoring.Checker {
	return monitoring.NewChecker(
		monitoring.NewCollector(st, cfg.View.SLADays),
		monitoring.NewAlerter(cfg.Monitor),
		cfg.Monitor,
	)
}
