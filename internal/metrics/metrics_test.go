package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/predictions", "/api/v1/predictions"},
		{"/api/v1/predictions/summary", "/api/v1/predictions/summary"},
		{"/api/v1/predictions/periods", "/api/v1/predictions/periods"},
		{"/api/v1/predictions/chart.png", "/api/v1/predictions/chart.png"},
		{"/api/v1/weather", "/api/v1/weather"},
		{"/generar-prediccion", "/generar-prediccion"},
		{"/clima", "/clima"},
		{"/api/v1", "/api/v1"},
		{"/app.js", "/app.js"},
		{"/api/v1/cache/stats", "/api/v1/cache/stats"},
		{"/api/v1/weather/stream", "/api/v1/weather/stream"},

		// Day lookups collapse to one label.
		{"/api/v1/weather/0", "/api/v1/weather/{day}"},
		{"/api/v1/weather/566", "/api/v1/weather/{day}"},
		{"/api/v1/weather/abc", "/api/v1/weather/{day}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v1/weather/1/extra", "other"},
		{"/api/v2/something", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeRoute(tt.path))
		})
	}
}

// TestMetricsCardinality verifies that 100 distinct days produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		seen[normalizeRoute(fmt.Sprintf("/api/v1/weather/%d", i))] = true
	}
	assert.Len(t, seen, 1)
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/clima", http.MethodGet, "418"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/clima?dia=3", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/clima", http.MethodGet, "418"))

	assert.Equal(t, before+1, after)
}

func TestRecordSimulation(t *testing.T) {
	before := testutil.ToFloat64(simulationsTotal.WithLabelValues("created"))

	RecordSimulation(5*time.Millisecond, map[string]int{"dry": 21, "rain": 1202})

	assert.Equal(t, before+1, testutil.ToFloat64(simulationsTotal.WithLabelValues("created")))
	assert.Equal(t, 21.0, testutil.ToFloat64(simulationDays.WithLabelValues("dry")))
	assert.Equal(t, 1202.0, testutil.ToFloat64(simulationDays.WithLabelValues("rain")))
}

func TestObserveStore_Classifies(t *testing.T) {
	errMissing := errors.New("missing")
	wrapped := fmt.Errorf("day 9: %w", errMissing)

	counter := func(result string) float64 {
		return testutil.ToFloat64(storeOperationsTotal.WithLabelValues("memory", "fetch_day", result))
	}
	ok, notFound, failed := counter("ok"), counter("not_found"), counter("error")

	ObserveStore("memory", "fetch_day", time.Now(), nil)
	ObserveStore("memory", "fetch_day", time.Now(), wrapped, Is(errMissing, "not_found"))
	ObserveStore("memory", "fetch_day", time.Now(), errors.New("boom"), Is(errMissing, "not_found"))

	assert.Equal(t, ok+1, counter("ok"))
	assert.Equal(t, notFound+1, counter("not_found"))
	assert.Equal(t, failed+1, counter("error"))
}

func TestMiddleware_KeepsFlusher(t *testing.T) {
	var flushed bool
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		require.True(t, ok)
		f.Flush()
		flushed = true
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/weather/stream", nil))
	assert.True(t, flushed)
	assert.True(t, w.Flushed)
}
