package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "/media", cfg.Storage.Local.PublicPath)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, "invoices.events", cfg.Messaging.Kafka.Topic)
	assert.False(t, cfg.GRPC.Enabled)
}

func TestNewDisabledDriversFallBackToNoop(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("MESSAGING_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Messaging.Driver)
}

func TestNewNormalizesPaths(t *testing.T) {
	t.Setenv("OBS_PROMETHEUS_PATH", "prom")
	t.Setenv("STORAGE_PUBLIC_PATH", "files/")
	t.Setenv("HTTP_PUBLIC_BASE_URL", " https://billing.example.com/ ")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/prom", cfg.Observability.PrometheusPath)
	assert.Equal(t, "/files", cfg.Storage.Local.PublicPath)
	assert.Equal(t, "https://billing.example.com", cfg.HTTP.PublicBaseURL)
}

func TestNewS3Storage(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "S3")
	t.Setenv("S3_BUCKET", "invoices")
	t.Setenv("S3_KEY_PREFIX", "/attachments/")
	t.Setenv("S3_PRESIGN_EXPIRY", "0s")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, "attachments", cfg.Storage.S3.KeyPrefix)
	assert.Equal(t, 30*time.Minute, cfg.Storage.S3.PresignExpiry)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "http port", env: map[string]string{"HTTP_PORT": "0"}},
		{name: "cache driver", env: map[string]string{"CACHE_DRIVER": "memcached"}},
		{name: "messaging driver", env: map[string]string{"MESSAGING_DRIVER": "nats"}},
		{name: "database driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "s3 without bucket", env: map[string]string{"STORAGE_DRIVER": "s3"}},
		{name: "storage driver", env: map[string]string{"STORAGE_DRIVER": "gcs"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := New()
			assert.Error(t, err)
		})
	}
}
