// Package monitoring watches the research worklist for attempts past the SLA.
package monitoring

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/config"
)

const defaultCheckInterval = 5 * time.Minute

// Result is the outcome of one worklist check.
type Result struct {
	Snapshot *Snapshot
	Alerts   []Alert
	Sent     int
	Err      error
}

// Checker runs worklist checks on a fixed interval.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	interval  time.Duration
	log       *zap.Logger

	mu   sync.Mutex
	last *Result
}

// NewChecker creates a checker. A non-positive CheckIntervalSecs falls back
// to five minutes.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	interval := time.Duration(cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Checker{
		collector: collector,
		alerter:   alerter,
		interval:  interval,
		log:       zap.L().With(zap.String("component", "monitoring.checker")),
	}
}

// Interval returns the time between checks.
func (c *Checker) Interval() time.Duration { return c.interval }

// Last returns the most recent result recorded by Run, or nil before the
// first tick.
func (c *Checker) Last() *Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Run checks the worklist every Interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	c.log.Info("worklist checker started", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("worklist checker stopped")
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// tick runs one check, logs its outcome and records it for Last.
func (c *Checker) tick(ctx context.Context) {
	res := c.check(ctx)

	c.mu.Lock()
	c.last = res
	c.mu.Unlock()

	if res.Err != nil {
		c.log.Warn("worklist check failed", zap.Error(res.Err))
		return
	}
	c.log.Info("worklist check",
		zap.Int("in_research", res.Snapshot.InResearch),
		zap.Int("overdue", res.Snapshot.Overdue),
		zap.Int("alerts", len(res.Alerts)),
		zap.Int("sent", res.Sent),
	)
}

// Check collects one snapshot, evaluates it and delivers any alerts.
func (c *Checker) Check(ctx context.Context) (*Snapshot, []Alert, error) {
	res := c.check(ctx)
	return res.Snapshot, res.Alerts, res.Err
}

func (c *Checker) check(ctx context.Context) *Result {
	snap, err := c.collector.Collect(ctx)
	if err != nil {
		return &Result{Err: err}
	}
	res := &Result{Snapshot: snap, Alerts: c.alerter.Evaluate(snap)}
	if len(res.Alerts) > 0 {
		res.Sent = c.alerter.SendAlerts(ctx, res.Alerts)
	}
	return res
}
