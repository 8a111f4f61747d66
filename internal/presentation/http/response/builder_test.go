package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/invoicedesk/pkg/errorbank"
)

type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data"`
	Meta    map[string]any `json:"meta"`
	Error   *struct {
		Kind    string         `json:"kind"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestBuildSuccessWithMeta(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithData([]string{}).WithMeta("count", 0).WithMeta("", "ignored").Build())

	assert.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, []any{}, env.Data)
	assert.Equal(t, map[string]any{"count": float64(0)}, env.Meta)
}

func TestBuildNoContent(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusNoContent).Build())

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestBuildAppError(t *testing.T) {
	c, rec := newContext()
	err := errorbank.BadRequest("invalid invoice payload",
		errorbank.WithDetail("fields", map[string]any{"amount": []string{"out_of_range"}}))
	require.NoError(t, New(c).WithError(err).Build())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode(t, rec)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "bad_request", env.Error.Kind)
	assert.Equal(t, "invalid invoice payload", env.Error.Message)
	assert.Contains(t, env.Error.Details, "fields")
}

func TestBuildPlainErrorIsInternal(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, New(c).WithStatus(http.StatusCreated).WithError(errors.New("boom")).Build())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "internal", env.Error.Kind)
}
