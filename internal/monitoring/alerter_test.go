package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/config"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		MinSuccessRate:  95,
		MaxCriticalRate: 0.10,
		MaxDLQDepth:     20,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &RunSnapshot{
		RunID:        "run-1",
		Found:        100,
		Loaded:       98,
		Failed:       2,
		SuccessRate:  98,
		Classified:   98,
		Critical:     3,
		CriticalRate: 3.0 / 98,
		DLQDepth:     2,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_SuccessRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &RunSnapshot{
		RunID:       "run-1",
		Found:       20,
		Loaded:      12,
		Failed:      8,
		SuccessRate: 60,
		Classified:  12,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertSuccessRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "60.0%")
	assert.Contains(t, alerts[0].Message, "8 failed of 20")
}

func TestAlerter_Evaluate_CriticalRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &RunSnapshot{
		Found:        40,
		Loaded:       40,
		SuccessRate:  100,
		Classified:   40,
		Critical:     10,
		CriticalRate: 0.25,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCriticalRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "25.0%")
}

func TestAlerter_Evaluate_DLQDepth(t *testing.T) {
	a := NewAlerter(thresholds())

	alerts := a.Evaluate(&RunSnapshot{SuccessRate: 100, DLQDepth: 21})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertDLQDepth, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "21 dead-lettered")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &RunSnapshot{
		Found:        20,
		Loaded:       10,
		Failed:       10,
		SuccessRate:  50,
		Classified:   10,
		Critical:     5,
		CriticalRate: 0.5,
		DLQDepth:     30,
	}

	alerts := a.Evaluate(snap)
	assert.Len(t, alerts, 3)

	types := make(map[AlertType]bool)
	for _, a := range alerts {
		types[a.Type] = true
	}
	assert.True(t, types[AlertSuccessRate])
	assert.True(t, types[AlertCriticalRate])
	assert.True(t, types[AlertDLQDepth])
}

func TestAlerter_Evaluate_MinimumDocumentsRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// Only 3 documents, below the minimum for rate alerts.
	snap := &RunSnapshot{
		Found:        3,
		Loaded:       1,
		Failed:       2,
		SuccessRate:  33.3,
		Classified:   1,
		Critical:     1,
		CriticalRate: 1,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_DisabledThresholds(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &RunSnapshot{
		Found:        100,
		SuccessRate:  10,
		Classified:   100,
		CriticalRate: 0.9,
		DLQDepth:     500,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertSuccessRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertDLQDepth, Severity: "medium", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSuccessRate, Message: "test"}})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	a.retry.InitialBackoff = time.Millisecond

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSuccessRate, Message: "test"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAlerter_SendAlerts_PermanentErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{{Type: AlertSuccessRate, Message: "test"}})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(1), calls.Load())
}
