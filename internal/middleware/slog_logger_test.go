package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/fleetops/internal/domain"
	"github.com/pkordes/fleetops/internal/middleware"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestSlogLogger_LogsRequestFields(t *testing.T) {
	var buf bytes.Buffer
	h := middleware.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "test-req-id"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	entry := logLine(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/healthz", entry["path"])
	assert.EqualValues(t, http.StatusOK, entry["status"])
	assert.EqualValues(t, 2, entry["bytes"])
	assert.Equal(t, "test-req-id", entry["request_id"])
	assert.NotNil(t, entry["duration_ms"])
	assert.NotContains(t, entry, "subject")
}

func TestSlogLogger_IncludesPrincipalAndLevel(t *testing.T) {
	var buf bytes.Buffer
	v := middleware.NewTokenVerifier(testSecret)
	h := middleware.NewSlogLogger(slog.New(slog.NewJSONHandler(&buf, nil)))(
		middleware.Authenticate(v, quiet())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})),
	)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/trips/x", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, "auth0|drv", "driver"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entry := logLine(t, &buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "auth0|drv", entry["subject"])
	assert.Equal(t, string(domain.RoleDriver), entry["role"])
}
