package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

func TestManagerDisabledFallsBackToNoopMeter(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{ServiceName: "invoicedesk"}}

	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
	assert.Nil(t, mgr.MetricsHandler())

	counter, err := NewMeter(mgr).Int64Counter("invoices.mutations")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	lc.RequireStart().RequireStop()
}

func TestManagerUnsupportedExportersDisableSignals(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "invoicedesk",
		EnableTracing:   true,
		TraceExporter:   "zipkin",
		EnableMetrics:   true,
		MetricsExporter: "statsd",
	}}

	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mgr.TracingEnabled())
	assert.False(t, mgr.MetricsEnabled())
}

func TestManagerStdoutMetrics(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := config.Config{Observability: config.Observability{
		ServiceName:     "invoicedesk",
		EnableMetrics:   true,
		MetricsExporter: "stdout",
	}}

	mgr, err := NewManager(lc, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, mgr.MetricsEnabled())
	assert.NotNil(t, mgr.Meter("test"))

	lc.RequireStart().RequireStop()
}

func TestOTLPExporterRequiresEndpoint(t *testing.T) {
	cfg := config.Config{Observability: config.Observability{
		ServiceName:   "invoicedesk",
		EnableTracing: true,
		TraceExporter: "otlp",
	}}

	_, err := NewManager(fxtest.NewLifecycle(t), cfg, zap.NewNop())
	assert.Error(t, err)
}
