package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Novip1906/tasks-api/internal/config"
	"github.com/Novip1906/tasks-api/internal/contextkeys"
	"github.com/Novip1906/tasks-api/internal/metrics"
)

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = contextkeys.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/", nil))

	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDPropagated(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextkeys.GetLogger(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodPost, "/tasks/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var inner, done map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &inner))
	require.NoError(t, json.Unmarshal(lines[1], &done))

	assert.Equal(t, "inside handler", inner["msg"])
	assert.Equal(t, "req-42", inner["request_id"])
	assert.Equal(t, "request completed", done["msg"])
	assert.Equal(t, float64(http.StatusTeapot), done["status"])
	assert.Equal(t, "POST", done["method"])
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	m := metrics.RegisterMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Metrics(m))
	r.Get("/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tasks/"+id, nil))
	}

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RequestCount.WithLabelValues("GET", "/tasks/{id}", "404")))
}

func TestRateLimiter(t *testing.T) {
	addr := os.Getenv("TASKS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TASKS_TEST_REDIS_ADDR not set (integration test)")
	}

	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	rl, err := NewRateLimiter(context.Background(), log,
		&config.Redis{Address: addr},
		&config.RateLimiter{Enabled: true, RPS: 1, Burst: 1},
	)
	require.NoError(t, err)
	defer rl.Close()

	h := rl.Middleware(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	req.RemoteAddr = "203.0.113.9:5555"

	first := httptest.NewRecorder()
	h.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	h.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"detail":"Request was throttled."}`, second.Body.String())
}
