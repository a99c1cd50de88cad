package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/sells-group/empresas-cli/internal/config"
	"github.com/sells-group/empresas-cli/internal/model"
)

func staticSource(ds *model.Dataset) Source {
	return func(context.Context) (*model.Dataset, error) { return ds, nil }
}

func TestChecker_RunStopsOnCancel(t *testing.T) {
	checker := NewChecker(staticSource(testDataset()), NewAlerter(config.MonitoringConfig{}), DefaultThresholds(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	// Let it tick a few times then cancel.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(staticSource(testDataset()), NewAlerter(config.MonitoringConfig{}), DefaultThresholds(), 0)
	assert.Equal(t, 5*time.Minute, checker.interval)

	// Start and immediately cancel to verify it doesn't panic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_SendsOnlyOnChange(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
	}))
	defer ts.Close()

	ds := testDataset()
	checker := NewChecker(staticSource(ds), NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL}), DefaultThresholds(), time.Minute)

	assert.Equal(t, 3, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, 0, checker.check(context.Background(), zap.NewNop()))

	ds.Companies[0].RiskLevel = model.RiskCritical
	assert.Equal(t, 3, checker.check(context.Background(), zap.NewNop()))
	assert.Equal(t, int32(6), received.Load())
}

func TestChecker_SourceError(t *testing.T) {
	failing := func(context.Context) (*model.Dataset, error) { return nil, eris.New("boom") }
	checker := NewChecker(failing, NewAlerter(config.MonitoringConfig{}), DefaultThresholds(), time.Minute)
	assert.Equal(t, 0, checker.check(context.Background(), zap.NewNop()))
}
