package store

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/model"
	"github.com/sells-group/retrieval-cli/internal/resilience"
)

// ErrSimulatedFailure is the cause carried by injected commit failures.
var ErrSimulatedFailure = eris.New("simulated backend failure")

// Flaky wraps a Store and simulates an unreliable backend: every call waits
// Latency and Commit fails with a transient error at FailureRate.
type Flaky struct {
	Store
	FailureRate float64
	Latency     time.Duration

	rnd func() float64
}

// NewFlaky wraps inner. A zero failure rate and latency make Flaky a
// pass-through.
func NewFlaky(inner Store, failureRate float64, latency time.Duration) *Flaky {
	return &Flaky{Store: inner, FailureRate: failureRate, Latency: latency, rnd: rand.Float64}
}

func (f *Flaky) GetAttempt(ctx context.Context, id string) (*model.RetrievalAttempt, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.Store.GetAttempt(ctx, id)
}

func (f *Flaky) ListAttempts(ctx context.Context, filter AttemptFilter) ([]model.RetrievalAttempt, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	return f.Store.ListAttempts(ctx, filter)
}

func (f *Flaky) Commit(ctx context.Context, updates ...Update) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.FailureRate > 0 && f.rnd() < f.FailureRate {
		zap.L().Debug("store: injecting commit failure", zap.Int("updates", len(updates)))
		return resilience.NewTransientError(ErrSimulatedFailure, "store: commit")
	}
	return f.Store.Commit(ctx, updates...)
}

func (f *Flaky) wait(ctx context.Context) error {
	if f.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(f.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "store: wait")
	case <-timer.C:
		return nil
	}
}
