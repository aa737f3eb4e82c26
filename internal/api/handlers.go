package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/star/solarweather/internal/chart"
	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/httputil"
)

type handlers struct {
	svc     *forecast.Service
	maxDays int
	logger  *slog.Logger
}

// internalError logs err and writes a generic 500.
func (h *handlers) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	httputil.WriteError(w, http.StatusInternalServerError, "internal error")
}

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"service": "solarweather",
		"endpoints": []string{
			"POST /api/v1/predictions?days=N",
			"GET /api/v1/predictions/summary",
			"GET /api/v1/predictions/periods",
			"GET /api/v1/predictions/chart.png",
			"GET /api/v1/weather?day=N",
			"GET /api/v1/weather/{day}",
			"GET /api/v1/weather/stream?from=N&count=N&interval_ms=N",
		},
	})
}

// generate handles POST /api/v1/predictions. ?days=N overrides the default horizon.
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	days := h.svc.DefaultDays()
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "days must be an integer")
			return
		}
		if n > h.maxDays {
			httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
				"error":    "days exceeds the maximum horizon",
				"max_days": h.maxDays,
			})
			return
		}
		days = n
	}

	res, err := h.svc.Generate(r.Context(), days)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	switch res.Outcome {
	case forecast.Created:
		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"created": true,
			"data":    map[string]any{"summary": newSummaryResponse(res.Summary)},
		})
	case forecast.AlreadyExists:
		httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "predictions already generated"})
	default:
		httputil.WriteErrorDetails(w, http.StatusUnprocessableEntity, "invalid simulation", res.Errors)
	}
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Summary(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if res.Outcome == forecast.NotFound {
		httputil.WriteError(w, http.StatusNotFound, "predictions not generated")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newSummaryResponse(res.Summary))
}

func (h *handlers) periods(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Periods(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if res.Outcome == forecast.NotFound {
		httputil.WriteError(w, http.StatusNotFound, "predictions not generated")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newPeriodsResponse(res.Periods, res.Counts))
}

func (h *handlers) chart(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Days(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if res.Outcome == forecast.NotFound {
		httputil.WriteError(w, http.StatusNotFound, "predictions not generated")
		return
	}

	var buf bytes.Buffer
	if err := chart.RenderPerimeter(&buf, res.Days, chart.DefaultOptions()); err != nil {
		if errors.Is(err, chart.ErrNotEnoughData) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// weather handles GET /api/v1/weather?day=N.
func (h *handlers) weather(w http.ResponseWriter, r *http.Request) {
	h.writeDay(w, r, r.URL.Query().Get("day"))
}

// weatherByPath handles GET /api/v1/weather/{day}.
func (h *handlers) weatherByPath(w http.ResponseWriter, r *http.Request) {
	h.writeDay(w, r, r.PathValue("day"))
}

func (h *handlers) writeDay(w http.ResponseWriter, r *http.Request, raw string) {
	if raw == "" {
		httputil.WriteError(w, http.StatusBadRequest, "day is required")
		return
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "day must be an integer")
		return
	}

	res, err := h.svc.QueryDay(r.Context(), n)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if res.Outcome == forecast.NotFound {
		httputil.WriteError(w, http.StatusNotFound, "day not found")
		return
	}

	withBodies := r.URL.Query().Get("bodies") == "true"
	httputil.WriteJSON(w, http.StatusOK, newDayResponse(res.Day, withBodies))
}
