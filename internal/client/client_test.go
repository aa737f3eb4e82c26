package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestGenerate(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/predictions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "720", r.URL.Query().Get("days"))

		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusCreated, map[string]any{
				"created": true,
				"data":    map[string]any{"summary": map[string]any{"horizon": 720, "dry_days": 5}},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "predictions already generated"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", 5*time.Second)

	res, err := c.Generate(context.Background(), 720)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, 720, res.Summary.Horizon)
	assert.Equal(t, 5, res.Summary.DryDays)

	res, err = c.Generate(context.Background(), 720)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "predictions already generated", res.Message)
}

func TestGenerate_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", 5*time.Second).Generate(context.Background(), 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "unauthorized", apiErr.Message)
}

func TestDay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/weather/64":
			assert.Equal(t, "true", r.URL.Query().Get("bodies"))
			writeJSON(w, http.StatusOK, map[string]any{
				"day": 64, "condition": "optimal", "perimeter": 1.5,
				"bodies": []map[string]any{{"name": "Ferengi"}, {"name": "Betasoide"}, {"name": "Vulcano"}},
			})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "day not found"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "", 5*time.Second)

	d, err := c.Day(context.Background(), 64, true)
	require.NoError(t, err)
	assert.Equal(t, 64, d.Day)
	assert.Equal(t, "optimal", d.Condition)
	assert.Len(t, d.Bodies, 3)

	_, err = c.Day(context.Background(), 99999, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSummary_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "busy"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"horizon": 3600, "peak_days": []int{72, 108}})
	}))
	defer srv.Close()

	s, err := New(srv.URL, "", 5*time.Second).Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3600, s.Horizon)
	assert.Equal(t, []int{72, 108}, s.PeakDays)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{Status: 500, Message: "internal error"}
	assert.Equal(t, "server returned 500: internal error", err.Error())
}
