package api

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/star/solarweather/internal/auth"
	"github.com/star/solarweather/internal/cache"
	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/health"
	"github.com/star/solarweather/internal/httputil"
	"github.com/star/solarweather/internal/metrics"
	"github.com/star/solarweather/internal/stream"
)

// DefaultMaxDays bounds the horizon of a single generation request.
const DefaultMaxDays = 100_000

// Options configures the HTTP server.
type Options struct {
	Addr       string
	Auth       auth.Config
	TrustProxy bool

	// RateLimitRPS is the per-client request rate. Zero disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	// MaxDays caps ?days= on generation requests (default: DefaultMaxDays).
	MaxDays int

	// CacheStats exposes the day cache statistics when the cache is enabled.
	CacheStats func() cache.CacheStats

	Stream stream.Config

	// Web is served at / when set.
	Web fs.FS
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	limiter    *IPRateLimiter
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(opts Options, svc *forecast.Service, logger *slog.Logger) *Server {
	if opts.MaxDays <= 0 {
		opts.MaxDays = DefaultMaxDays
	}
	opts.Stream.TrustProxy = opts.TrustProxy

	h := &handlers{svc: svc, maxDays: opts.MaxDays, logger: logger}
	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(svc, 2*time.Second, logger))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /api/v1", h.index)
	if opts.Web != nil {
		mux.Handle("GET /", http.FileServerFS(opts.Web))
	}

	mux.HandleFunc("POST /api/v1/predictions", h.generate)
	mux.HandleFunc("GET /api/v1/predictions/summary", h.summary)
	mux.HandleFunc("GET /api/v1/predictions/periods", h.periods)
	mux.HandleFunc("GET /api/v1/predictions/chart.png", h.chart)
	mux.HandleFunc("GET /api/v1/weather", h.weather)
	mux.HandleFunc("GET /api/v1/weather/{day}", h.weatherByPath)
	mux.HandleFunc("GET /api/v1/weather/stream", stream.NewHandler(svc, opts.Stream, logger).HandleDays)

	if opts.CacheStats != nil {
		mux.HandleFunc("GET /api/v1/cache/stats", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, opts.CacheStats())
		})
	}

	// First version of the public API.
	mux.HandleFunc("GET /generar-prediccion", h.legacyGenerate)
	mux.HandleFunc("GET /clima", h.legacyWeather)

	// Build middleware chain: metrics -> logging -> ratelimit -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(opts.Auth)(handler)

	var limiter *IPRateLimiter
	if opts.RateLimitRPS > 0 {
		limiter = NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst, 10*time.Minute)
		handler = rateLimitMiddleware(limiter, opts.TrustProxy, logger)(handler)
	}

	handler = loggingMiddleware(logger, opts.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		limiter: limiter,
		logger:  logger,
	}
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs background maintenance and blocks until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	if s.limiter == nil {
		<-ctx.Done()
		return
	}
	s.limiter.Start(ctx)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"query", r.URL.RawQuery,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
