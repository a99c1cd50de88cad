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
	"golang.org/x/time/rate"

	"github.com/sells-group/empresas-cli/internal/config"
	"github.com/sells-group/empresas-cli/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowCompleteness AlertType = "COMPLETITUD_BAJA"
	AlertHighRisk        AlertType = "ALTO_RIESGO"
	AlertMissingContact  AlertType = "CONTACTO_FALTANTE"
)

// Severity grades an alert.
type Severity string

const (
	SeverityMedium   Severity = "MEDIA"
	SeverityHigh     Severity = "ALTA"
	SeverityCritical Severity = "CRÍTICA"
)

// Alert represents a single data-quality alert.
type Alert struct {
	Type        AlertType `json:"tipo"`
	Description string    `json:"descripcion"`
	Severity    Severity  `json:"severidad"`
	Count       int       `json:"cantidad"`
}

// Thresholds configures Evaluate.
type Thresholds struct {
	// LowCompleteness is the completeness percentage below which a company
	// counts towards COMPLETITUD_BAJA.
	LowCompleteness float64
}

// DefaultThresholds returns the standard alert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{LowCompleteness: 50}
}

// ThresholdsFrom converts the monitoring config.
func ThresholdsFrom(cfg config.MonitoringConfig) Thresholds {
	return Thresholds{LowCompleteness: cfg.LowCompletenessThreshold}
}

// Evaluate checks the dataset against the thresholds and returns one alert
// per triggered rule. Rules with no offending company produce nothing.
func Evaluate(ds *model.Dataset, th Thresholds) []Alert {
	var alerts []Alert

	low := 0
	for _, c := range ds.Companies {
		if c.Completeness < th.LowCompleteness {
			low++
		}
	}
	if low > 0 {
		alerts = append(alerts, Alert{
			Type:        AlertLowCompleteness,
			Description: fmt.Sprintf("%d empresas con completitud menor al %s%%", low, model.FormatFloat(th.LowCompleteness)),
			Severity:    SeverityHigh,
			Count:       low,
		})
	}

	if high := highRiskCount(ds); high > 0 {
		alerts = append(alerts, Alert{
			Type:        AlertHighRisk,
			Description: fmt.Sprintf("%d empresas con nivel de riesgo %s o %s", high, model.RiskHigh, model.RiskCritical),
			Severity:    SeverityCritical,
			Count:       high,
		})
	}

	if missing := absentCount(ds, model.ColPhone1); missing > 0 {
		alerts = append(alerts, Alert{
			Type:        AlertMissingContact,
			Description: fmt.Sprintf("%d empresas sin teléfono de contacto", missing),
			Severity:    SeverityMedium,
			Count:       missing,
		})
	}

	return alerts
}

// Payload is the webhook body for one alert.
type Payload struct {
	RunID     string    `json:"run_id,omitempty"`
	Alert     Alert     `json:"alert"`
	Timestamp time.Time `json:"timestamp"`
}

// Alerter delivers alerts to a webhook, at most WebhookRPS per second.
type Alerter struct {
	cfg     config.MonitoringConfig
	client  *http.Client
	limiter *rate.Limiter
	now     func() time.Time
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	limit := rate.Inf
	if cfg.WebhookRPS > 0 {
		limit = rate.Limit(cfg.WebhookRPS)
	}
	return &Alerter{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, runID string, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.limiter.Wait(ctx); err != nil {
			zap.L().Warn("monitoring: alert delivery interrupted", zap.Error(err))
			break
		}
		if err := a.sendWebhook(ctx, Payload{RunID: runID, Alert: alert, Timestamp: a.now()}); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, p Payload) error {
	payload, err := json.Marshal(p)
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
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func highRiskCount(ds *model.Dataset) int {
	n := 0
	for _, c := range ds.Companies {
		if c.RiskLevel == model.RiskHigh || c.RiskLevel == model.RiskCritical {
			n++
		}
	}
	return n
}

// absentCount counts companies whose named column is absent. A column
// missing from the table counts as absent everywhere.
func absentCount(ds *model.Dataset, col string) int {
	n := 0
	for i := range ds.Companies {
		if !ds.Record(i).Get(col).Valid {
			n++
		}
	}
	return n
}
