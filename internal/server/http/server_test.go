package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/invoicedesk/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		HTTP: config.HTTP{BodyLimit: "1K"},
		Storage: config.Storage{
			Driver: "local",
			Local:  config.LocalStorage{Dir: t.TempDir(), PublicPath: "/media"},
		},
	}
}

func serve(e *echo.Echo, method, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthAcceptsTrailingSlash(t *testing.T) {
	e := NewEcho(testConfig(t), nil, zap.NewNop())

	for _, target := range []string{"/health", "/health/"} {
		rec := serve(e, http.MethodGet, target, "")
		assert.Equal(t, http.StatusOK, rec.Code, target)
	}
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	e := NewEcho(testConfig(t), nil, zap.NewNop())

	rec := serve(e, http.MethodGet, "/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "not_found", body.Error.Kind)
}

func TestBodyLimitRejectsLargeRequests(t *testing.T) {
	e := NewEcho(testConfig(t), nil, zap.NewNop())
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := serve(e, http.MethodPost, "/echo", strings.Repeat("x", 4096))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "payload_too_large", body.Error.Kind)
}

func TestLocalMediaIsServed(t *testing.T) {
	cfg := testConfig(t)
	dir := filepath.Join(cfg.Storage.Local.Dir, "invoices")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("%PDF-1.4"), 0o644))

	e := NewEcho(cfg, nil, zap.NewNop())
	rec := serve(e, http.MethodGet, "/media/invoices/a.pdf", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}
