// Package stream replays the stored forecast day by day over Server-Sent
// Events. Clients connect via GET /api/v1/weather/stream and receive one
// message per day, in day order.
//
// SSE message format:
//
//	data: {"type":"day","day":64,"condition":"optimal","perimeter":0}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","id":"...","horizon":3653,"from":0,"to":359}\n\n
//
// The last message is {"type":"end","sent":N}. Keep-alive comments (:\n\n)
// are sent every KeepaliveInterval while a slow replay is paused between days.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/httputil"
	"github.com/star/solarweather/internal/metrics"
	"github.com/star/solarweather/internal/weather"
)

const (
	defaultCount = 360
	maxCount     = 3600
	maxInterval  = 10 * time.Second
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 4).
	Interval           time.Duration // Default pause between days (default: 0).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 15s).
	TrustProxy         bool
}

// Source is the forecast the stream reads from.
type Source interface {
	Summary(ctx context.Context) (forecast.SummaryResult, error)
	QueryDay(ctx context.Context, n int) (forecast.QueryResult, error)
}

// Handler manages SSE streaming connections.
type Handler struct {
	source  Source
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source Source, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP <= 0 {
		config.MaxConcurrentPerIP = 4
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 15 * time.Second
	}
	return &Handler{
		source:  source,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// streamParams are the parsed query parameters of a stream request.
type streamParams struct {
	from     int
	count    int
	interval time.Duration
}

func (h *Handler) parseParams(r *http.Request) (streamParams, string) {
	p := streamParams{count: defaultCount, interval: h.config.Interval}
	q := r.URL.Query()

	if v := q.Get("from"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, "invalid from parameter, must be a non-negative integer"
		}
		p.from = n
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCount {
			return p, fmt.Sprintf("invalid count parameter, must be 1-%d", maxCount)
		}
		p.count = n
	}
	if v := q.Get("interval_ms"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || time.Duration(n)*time.Millisecond > maxInterval {
			return p, fmt.Sprintf("invalid interval_ms parameter, must be 0-%d", maxInterval.Milliseconds())
		}
		p.interval = time.Duration(n) * time.Millisecond
	}
	return p, ""
}

// HandleDays serves the SSE day stream.
// GET /api/v1/weather/stream?from=0&count=360&interval_ms=100
func (h *Handler) HandleDays(w http.ResponseWriter, r *http.Request) {
	params, msg := h.parseParams(r)
	if msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	sum, err := h.source.Summary(ctx)
	if err != nil {
		h.logger.Error("stream summary lookup failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if sum.Outcome == forecast.NotFound {
		httputil.WriteError(w, http.StatusNotFound, "predictions not generated")
		return
	}
	if params.from >= sum.Summary.Horizon {
		httputil.WriteError(w, http.StatusNotFound, "day not found")
		return
	}
	to := min(params.from+params.count, sum.Summary.Horizon) - 1

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		httputil.WriteError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.IncStreamConnections("connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"from", params.from,
		"to", to,
	)

	var sent int
	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("stream disconnected",
			"remote_ip", ip,
			"days_sent", sent,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// A slow replay outlives the server's WriteTimeout.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{w: w, flusher: flusher, rc: rc, logger: h.logger}

	// Jittered retry interval (3-7s) so reconnects after a restart spread out.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	meta := metadataMessage{
		Type:    "metadata",
		ID:      sum.Summary.ID.String(),
		Horizon: sum.Summary.Horizon,
		From:    params.from,
		To:      to,
	}
	if err := c.sendJSON(meta); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	for n := params.from; n <= to; n++ {
		if n > params.from && params.interval > 0 {
			if err := h.pause(ctx, c, params.interval); err != nil {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		res, err := h.source.QueryDay(ctx, n)
		if err != nil || res.Outcome == forecast.NotFound {
			// The forecast was reset mid-stream.
			metrics.IncStreamErrors("lookup")
			h.logger.Warn("stream day lookup failed", "remote_ip", ip, "day", n, "error", err)
			return
		}

		if err := c.sendJSON(newDayMessage(res.Day)); err != nil {
			metrics.IncStreamErrors("send_error")
			h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
			return
		}
		sent++
	}

	if err := c.sendJSON(endMessage{Type: "end", Sent: sent}); err != nil {
		metrics.IncStreamErrors("send_error")
	}
}

// pause waits d between two days, sending keep-alives while waiting.
func (h *Handler) pause(ctx context.Context, c *client, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				return err
			}
		}
	}
}

// SSE message payload types.

type metadataMessage struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Horizon int    `json:"horizon"`
	From    int    `json:"from"`
	To      int    `json:"to"`
}

type dayMessage struct {
	Type      string            `json:"type"`
	Day       int               `json:"day"`
	Condition weather.Condition `json:"condition"`
	Perimeter float64           `json:"perimeter"`
	Positions [3][2]float64     `json:"positions"`
}

func newDayMessage(d weather.Day) dayMessage {
	msg := dayMessage{Type: "day", Day: d.Number, Condition: d.Condition, Perimeter: d.Perimeter}
	for i, p := range d.Positions() {
		msg.Positions[i] = [2]float64{p.X, p.Y}
	}
	return msg
}

type endMessage struct {
	Type string `json:"type"`
	Sent int    `json:"sent"`
}
