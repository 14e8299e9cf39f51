package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestLiveness(t *testing.T) {
	h := NewHealthHandler("lending-service", nil, nil, testLogger())

	rec, body := get(t, h.Router(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "lending-service", body["service"])
}

func TestReadiness_PingsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHealthHandler("lending-service", map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}, nil, testLogger())
	router := h.Router()

	rec, body := get(t, router, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", body["status"])

	mr.Close()
	rec, body = get(t, router, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["postgres"])
	assert.NotEqual(t, "ok", checks["redis"])
}

func TestReadiness_FailingDependency(t *testing.T) {
	h := NewHealthHandler("lending-service", map[string]ReadinessCheck{
		"postgres": func(context.Context) error { return errors.New("connection refused") },
	}, nil, testLogger())

	rec, body := get(t, h.Router(), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "connection refused", body["checks"].(map[string]any)["postgres"])
}

func TestMetricsRoute(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "lending_payments_recorded_total 3\n")
	})
	h := NewHealthHandler("lending-service", nil, metrics, testLogger())

	rec, _ := get(t, h.Router(), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lending_payments_recorded_total")

	rec, _ = get(t, NewHealthHandler("lending-service", nil, nil, testLogger()).Router(), "/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_RejectOtherMethods(t *testing.T) {
	h := NewHealthHandler("lending-service", nil, nil, testLogger())
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
