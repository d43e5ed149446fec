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

	"github.com/sells-group/awards-cli/internal/config"
	"github.com/sells-group/awards-cli/internal/pipeline"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// minDocuments is the smallest run whose rates are worth alerting on.
const minDocuments = 5

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertSuccessRate  AlertType = "run_success_rate"
	AlertCriticalRate AlertType = "critical_record_rate"
	AlertDLQDepth     AlertType = "dlq_depth"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a RunSnapshot against configured thresholds
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
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
		},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *RunSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.MinSuccessRate > 0 && snap.Found >= minDocuments && snap.SuccessRate < a.cfg.MinSuccessRate {
		alerts = append(alerts, Alert{
			Type:     AlertSuccessRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run %s success rate %.1f%% is below %.1f%% (%d failed of %d documents)",
				snap.RunID, snap.SuccessRate, a.cfg.MinSuccessRate, snap.Failed, snap.Found,
			),
			Details: map[string]any{
				"success_rate": snap.SuccessRate,
				"threshold":    a.cfg.MinSuccessRate,
				"failed":       snap.Failed,
				"found":        snap.Found,
				"years":        snap.Years,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MaxCriticalRate > 0 && snap.Classified >= minDocuments && snap.CriticalRate > a.cfg.MaxCriticalRate {
		alerts = append(alerts, Alert{
			Type:     AlertCriticalRate,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Run %s classified %.1f%% of records critical, above %.1f%% (%d of %d)",
				snap.RunID, snap.CriticalRate*100, a.cfg.MaxCriticalRate*100, snap.Critical, snap.Classified,
			),
			Details: map[string]any{
				"critical_rate": snap.CriticalRate,
				"threshold":     a.cfg.MaxCriticalRate,
				"critical":      snap.Critical,
				"classified":    snap.Classified,
			},
			Timestamp: now,
		})
	}

	if a.cfg.MaxDLQDepth > 0 && snap.DLQDepth > a.cfg.MaxDLQDepth {
		alerts = append(alerts, Alert{
			Type:     AlertDLQDepth,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d dead-lettered documents awaiting retry, above %d",
				snap.DLQDepth, a.cfg.MaxDLQDepth,
			),
			Details: map[string]any{
				"dlq_depth": snap.DLQDepth,
				"threshold": a.cfg.MaxDLQDepth,
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

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
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

// sendWebhook posts a single alert to the webhook URL, retrying transient
// statuses.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	return resilience.Do(ctx, a.retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
		if err != nil {
			return eris.Wrap(err, "monitoring: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return eris.Wrap(err, "monitoring: webhook request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= 400 {
			err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}
		return nil
	})
}

// Check collects a snapshot of report, logs every alert at Warn and sends
// them to the webhook when one is configured.
func Check(ctx context.Context, c *Collector, a *Alerter, report *pipeline.RunReport) ([]Alert, error) {
	snap, err := c.Collect(ctx, report)
	if err != nil {
		return nil, err
	}
	alerts := a.Evaluate(snap)
	for _, al := range alerts {
		zap.L().Warn("monitoring: run alert",
			zap.String("type", string(al.Type)),
			zap.String("run_id", snap.RunID),
			zap.String("message", al.Message),
		)
	}
	a.SendAlerts(ctx, alerts)
	return alerts, nil
}
