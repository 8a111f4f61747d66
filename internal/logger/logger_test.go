package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap/zapcore"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

func TestBuildHonoursLevel(t *testing.T) {
	logger, err := Build(config.Observability{ServiceName: "invoicedesk", LogLevel: "warn", LogEncoding: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestBuildFallsBackToInfo(t *testing.T) {
	logger, err := Build(config.Observability{LogLevel: "chatty", LogEncoding: "console"})
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRegistersLifecycle(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	logger, err := New(lc, config.Config{Observability: config.Observability{LogLevel: "info", LogEncoding: "json"}})
	require.NoError(t, err)
	require.NotNil(t, logger)

	lc.RequireStart().RequireStop()
}
