package monitoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/model"
)

// Source loads the dataset to monitor.
type Source func(ctx context.Context) (*model.Dataset, error)

// Checker re-evaluates a dataset periodically in the background and sends
// alerts whenever the triggered set changes.
type Checker struct {
	source     Source
	alerter    *Alerter
	thresholds Thresholds
	interval   time.Duration
	last       string
}

// NewChecker creates a background alert checker. A non-positive interval
// defaults to five minutes.
func NewChecker(source Source, alerter *Alerter, th Thresholds, interval time.Duration) *Checker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Checker{
		source:     source,
		alerter:    alerter,
		thresholds: th,
		interval:   interval,
	}
}

// Run starts the periodic check loop. It blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

// check runs one evaluation and returns the number of alerts sent.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	ds, err := c.source(ctx)
	if err != nil {
		log.Error("monitoring: failed to load dataset", zap.Error(err))
		return 0
	}

	alerts := Evaluate(ds, c.thresholds)
	sig := signature(alerts)
	if sig == c.last {
		log.Debug("monitoring: alerts unchanged", zap.Int("alerts", len(alerts)))
		return 0
	}
	c.last = sig

	sent := c.alerter.SendAlerts(ctx, "", alerts)
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_triggered", len(alerts)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

func signature(alerts []Alert) string {
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = fmt.Sprintf("%s=%d", a.Type, a.Count)
	}
	return strings.Join(parts, ",")
}
