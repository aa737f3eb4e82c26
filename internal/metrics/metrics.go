package metrics

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarweather_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	simulationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_simulations_total",
			Help: "Simulations built, by outcome.",
		},
		[]string{"result"},
	)

	simulationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "solarweather_simulation_duration_seconds",
			Help:    "Time to classify and aggregate a simulation.",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5},
		},
	)

	simulationDays = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solarweather_simulation_days",
			Help: "Days per weather condition in the last generated simulation.",
		},
		[]string{"condition"},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_cache_lookups_total",
			Help: "Day cache lookups, by result.",
		},
		[]string{"result"},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solarweather_cache_evictions_total",
			Help: "Day cache entries evicted.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarweather_cache_entries",
			Help: "Day cache entries currently held.",
		},
	)

	storeOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_store_operations_total",
			Help: "Repository operations, by backend, operation and result.",
		},
		[]string{"backend", "op", "result"},
	)

	storeDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solarweather_store_duration_seconds",
			Help:    "Repository operation latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solarweather_rate_limited_total",
			Help: "Requests rejected by the per-client rate limiter.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_stream_connections_total",
			Help: "Day stream connection events.",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "solarweather_streams_active",
			Help: "Open day streams.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "solarweather_stream_messages_total",
			Help: "Messages sent on day streams.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solarweather_stream_errors_total",
			Help: "Day stream errors, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		simulationsTotal,
		simulationDurationSeconds,
		simulationDays,
		cacheLookupsTotal,
		cacheEvictionsTotal,
		cacheEntries,
		storeOperationsTotal,
		storeDurationSeconds,
		rateLimitedTotal,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSimulation records a generated simulation and its per-condition day counts.
func RecordSimulation(d time.Duration, days map[string]int) {
	simulationsTotal.WithLabelValues("created").Inc()
	simulationDurationSeconds.Observe(d.Seconds())
	for cond, n := range days {
		simulationDays.WithLabelValues(cond).Set(float64(n))
	}
}

// IncSimulationsRejected counts a simulation that failed validation.
func IncSimulationsRejected() {
	simulationsTotal.WithLabelValues("rejected").Inc()
}

func IncCacheHit()  { cacheLookupsTotal.WithLabelValues("hit").Inc() }
func IncCacheMiss() { cacheLookupsTotal.WithLabelValues("miss").Inc() }

// AddCacheEvictions counts n evicted cache entries.
func AddCacheEvictions(n int) {
	cacheEvictionsTotal.Add(float64(n))
}

func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// IncRateLimited counts a request rejected with 429.
func IncRateLimited() {
	rateLimitedTotal.Inc()
}

func IncStreamConnections(event string) { streamConnectionsTotal.WithLabelValues(event).Inc() }
func IncStreamsActive()                 { streamsActive.Inc() }
func DecStreamsActive()                 { streamsActive.Dec() }
func IncStreamMessages()                { streamMessagesTotal.Inc() }

// IncStreamErrors counts a stream error. reason must come from a fixed set.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// ErrorClassifier maps an error to a result label. Errors it does not
// recognize are reported as "error".
type ErrorClassifier func(err error) (string, bool)

// ObserveStore records a repository operation. Expected outcomes, such as a
// missing day, can be labeled through the classifiers instead of "error".
func ObserveStore(backend, op string, start time.Time, err error, classify ...ErrorClassifier) {
	storeDurationSeconds.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
	storeOperationsTotal.WithLabelValues(backend, op, storeResult(err, classify)).Inc()
}

func storeResult(err error, classify []ErrorClassifier) string {
	if err == nil {
		return "ok"
	}
	for _, c := range classify {
		if label, ok := c(err); ok {
			return label
		}
	}
	return "error"
}

// Is returns a classifier that labels errors matching target.
func Is(target error, label string) ErrorClassifier {
	return func(err error) (string, bool) {
		return label, errors.Is(err, target)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush passes through to the wrapped writer so streaming handlers keep working.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

var knownRoutes = map[string]struct{}{
	"/":                             {},
	"/app.js":                       {},
	"/styles.css":                   {},
	"/api/v1":                       {},
	"/healthz":                      {},
	"/readyz":                       {},
	"/metrics":                      {},
	"/api/v1/predictions":           {},
	"/api/v1/predictions/summary":   {},
	"/api/v1/predictions/periods":   {},
	"/api/v1/predictions/chart.png": {},
	"/api/v1/weather":               {},
	"/api/v1/weather/stream":        {},
	"/api/v1/cache/stats":           {},
	"/generar-prediccion":           {},
	"/clima":                        {},
}

var weatherDayRoute = regexp.MustCompile(`^/api/v1/weather/[^/]+$`)

// normalizeRoute maps a request path to a bounded set of labels.
func normalizeRoute(path string) string {
	if _, ok := knownRoutes[path]; ok {
		return path
	}
	if weatherDayRoute.MatchString(path) {
		return "/api/v1/weather/{day}"
	}
	return "other"
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
