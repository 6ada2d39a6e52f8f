package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/retrieval-cli/internal/config"
	"github.com/sells-group/retrieval-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertOverdueBacklog AlertType = "overdue_backlog"
	AlertStaleAttempt   AlertType = "stale_attempt"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.RetryConfig
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  resilience.FromSettings(3, 100, 1000),
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
// A zero threshold disables its check.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.OverdueThreshold > 0 && snap.Overdue >= a.cfg.OverdueThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertOverdueBacklog,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d of %d attempts in research are past the %d-day SLA",
				snap.Overdue, snap.InResearch, snap.SLADays,
			),
			Details: map[string]any{
				"overdue":     snap.Overdue,
				"in_research": snap.InResearch,
				"threshold":   a.cfg.OverdueThreshold,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CriticalDays > 0 && snap.OldestDays > a.cfg.CriticalDays {
		alerts = append(alerts, Alert{
			Type:     AlertStaleAttempt,
			Severity: "high",
			Message: fmt.Sprintf(
				"Attempt %s has been in research for %d days (limit %d)",
				snap.OldestID, snap.OldestDays, a.cfg.CriticalDays,
			),
			Details: map[string]any{
				"attempt_id": snap.OldestID,
				"days":       snap.OldestDays,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	retry := a.retry
	retry.OnRetry = resilience.RetryLogger("monitoring: webhook")

	sent := 0
	for _, alert := range alerts {
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return a.sendWebhook(ctx, alert)
		})
		if err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL. Network failures and
// 5xx responses are transient.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode >= 500:
		return resilience.NewTransientError(
			eris.Errorf("webhook returned status %d", resp.StatusCode), "monitoring: webhook")
	case resp.StatusCode >= 400:
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
