package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/repository"
	"github.com/star/solarweather/internal/simulation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// testSource returns a forecast service holding a generated forecast of days days.
func testSource(t *testing.T, days int) *forecast.Service {
	t.Helper()
	svc := forecast.NewService(repository.NewMemory(), simulation.NewGenerator(2, testLogger()), days, testLogger())
	if days > 0 {
		res, err := svc.Generate(context.Background(), days)
		require.NoError(t, err)
		require.Equal(t, forecast.Created, res.Outcome)
	}
	return svc
}

// readMessages parses the data lines of an SSE body.
func readMessages(t *testing.T, body string) []map[string]any {
	t.Helper()
	var msgs []map[string]any
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var msg map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &msg), "data line %q", line)
		msgs = append(msgs, msg)
	}
	return msgs
}

func serve(ctx context.Context, h *Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil).WithContext(ctx)
	req.RemoteAddr = "192.0.2.1:4321"
	w := httptest.NewRecorder()
	h.HandleDays(w, req)
	return w
}

// TestSSEMessageFormat verifies the wire format and message order.
func TestSSEMessageFormat(t *testing.T) {
	h := NewHandler(testSource(t, 30), Config{}, testLogger())

	w := serve(context.Background(), h, "/api/v1/weather/stream?count=5")
	resp := w.Result()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	msgs := readMessages(t, w.Body.String())
	require.Len(t, msgs, 7, "metadata + 5 days + end")

	meta := msgs[0]
	assert.Equal(t, "metadata", meta["type"])
	assert.Equal(t, float64(30), meta["horizon"])
	assert.Equal(t, float64(0), meta["from"])
	assert.Equal(t, float64(4), meta["to"])

	for i, msg := range msgs[1:6] {
		assert.Equal(t, "day", msg["type"], "message %d", i)
		assert.Equal(t, float64(i), msg["day"], "message %d", i)
		pos, ok := msg["positions"].([]any)
		if assert.True(t, ok, "message %d positions", i) {
			assert.Len(t, pos, 3, "message %d positions", i)
		}
	}
	assert.Equal(t, "dry", msgs[1]["condition"])

	end := msgs[6]
	assert.Equal(t, "end", end["type"])
	assert.Equal(t, float64(5), end["sent"])

	for _, line := range strings.Split(w.Body.String(), "\n") {
		if line == "" || line == ":" {
			continue
		}
		assert.True(t, strings.HasPrefix(line, "data: ") || strings.HasPrefix(line, "retry: "),
			"unexpected SSE line: %q", line)
	}
}

// TestStreamClipsToHorizon verifies a range past the horizon stops at the last day.
func TestStreamClipsToHorizon(t *testing.T) {
	h := NewHandler(testSource(t, 30), Config{}, testLogger())

	msgs := readMessages(t, serve(context.Background(), h, "/api/v1/weather/stream?from=28&count=10").Body.String())
	require.Len(t, msgs, 4)
	assert.Equal(t, float64(29), msgs[0]["to"])
	assert.Equal(t, float64(28), msgs[1]["day"])
	assert.Equal(t, float64(29), msgs[2]["day"])
	assert.Equal(t, float64(2), msgs[3]["sent"])
}

func TestStreamErrors(t *testing.T) {
	generated := NewHandler(testSource(t, 30), Config{}, testLogger())
	empty := NewHandler(testSource(t, 0), Config{}, testLogger())

	tests := []struct {
		name       string
		handler    *Handler
		target     string
		wantStatus int
	}{
		{"bad from", generated, "?from=x", http.StatusBadRequest},
		{"negative from", generated, "?from=-1", http.StatusBadRequest},
		{"zero count", generated, "?count=0", http.StatusBadRequest},
		{"count too large", generated, "?count=3601", http.StatusBadRequest},
		{"interval too large", generated, "?interval_ms=10001", http.StatusBadRequest},
		{"from past horizon", generated, "?from=30", http.StatusNotFound},
		{"nothing generated", empty, "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(context.Background(), tt.handler, "/api/v1/weather/stream"+tt.target)
			assert.Equal(t, tt.wantStatus, w.Code, "body %s", w.Body.String())
		})
	}
}

// TestStreamConcurrencyLimit verifies a client over its stream quota gets 429.
func TestStreamConcurrencyLimit(t *testing.T) {
	h := NewHandler(testSource(t, 10), Config{MaxConcurrentPerIP: 1}, testLogger())
	h.limiter.acquire("192.0.2.1")

	w := serve(context.Background(), h, "/api/v1/weather/stream")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	h.limiter.release("192.0.2.1")
	w = serve(context.Background(), h, "/api/v1/weather/stream?count=1")
	assert.Equal(t, http.StatusOK, w.Code, "status after release")
	assert.Zero(t, h.limiter.count("192.0.2.1"), "stream slot not released after the stream ended")
}

// TestStreamCancelledDuringPause verifies a disconnect ends a slow replay.
func TestStreamCancelledDuringPause(t *testing.T) {
	h := NewHandler(testSource(t, 10), Config{}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	w := serve(ctx, h, "/api/v1/weather/stream?count=3&interval_ms=10000")
	require.Less(t, time.Since(start), 5*time.Second, "handler should return promptly on cancel")

	msgs := readMessages(t, w.Body.String())
	require.Len(t, msgs, 2, "metadata + 1 day")
	assert.NotEqual(t, "end", msgs[len(msgs)-1]["type"], "cancelled stream should not send end")
}

func TestStreamKeepalive(t *testing.T) {
	h := NewHandler(testSource(t, 10), Config{KeepaliveInterval: 5 * time.Millisecond}, testLogger())

	w := serve(context.Background(), h, "/api/v1/weather/stream?count=2&interval_ms=60")
	assert.Contains(t, w.Body.String(), ":\n\n", "expected a keep-alive comment during the pause")
	assert.Len(t, readMessages(t, w.Body.String()), 4)
}

// TestRateLimiting verifies per-IP concurrent stream limits.
func TestRateLimiting(t *testing.T) {
	limiter := newStreamLimiter(3)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.acquire("10.0.0.1"), "acquire %d", i+1)
	}
	assert.False(t, limiter.acquire("10.0.0.1"), "acquire beyond limit should fail")
	assert.True(t, limiter.acquire("10.0.0.2"), "different IP should not be rate limited")

	limiter.release("10.0.0.1")
	assert.True(t, limiter.acquire("10.0.0.1"), "acquire after release should succeed")
	assert.Equal(t, 3, limiter.count("10.0.0.1"))
}

func TestGlobalLimit(t *testing.T) {
	limiter := newStreamLimiter(1000)
	limiter.maxTotal = 2

	limiter.acquire("a")
	limiter.acquire("b")
	assert.False(t, limiter.acquire("c"), "acquire beyond global limit should fail")
}
