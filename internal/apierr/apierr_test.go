package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindRateLimited:  http.StatusTooManyRequests,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), string(kind))
	}
}

func TestStatusOverride(t *testing.T) {
	err := Unavailable("target unreachable", nil).WithStatus(http.StatusUnprocessableEntity)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus())
	assert.Equal(t, KindUnavailable, err.Kind)
}

func TestFromKeepsWrappedAPIError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NotFound("missing"))
	got := From(wrapped, "fallback")
	assert.Equal(t, KindNotFound, got.Kind)
	assert.Equal(t, "missing", got.Message)

	plain := From(errors.New("db down"), "Failed to load")
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "Failed to load", plain.Message)
	assert.ErrorContains(t, plain, "db down")
}

func TestWriteErrorHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Internal("Failed to fetch", errors.New("connection refused on 10.0.0.3")))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")

	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.OK)
	assert.Equal(t, KindInternal, env.Kind)
	assert.Equal(t, "Failed to fetch", env.Message)
}

func TestWriteData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteData(rec, http.StatusCreated, map[string]string{"id": "1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"ok":true,"data":{"id":"1"}}`, rec.Body.String())
}
