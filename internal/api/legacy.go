package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/star/solarweather/internal/forecast"
	"github.com/star/solarweather/internal/httputil"
)

// legacyGenerate handles GET /generar-prediccion: ten calendar years from today.
func (h *handlers) legacyGenerate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Generate(r.Context(), forecast.HorizonDays(10, time.Now()))
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	switch res.Outcome {
	case forecast.Created:
		s := res.Summary
		httputil.WriteJSON(w, http.StatusCreated, legacyCreated{
			Created: true,
			Data: legacySummary{
				DaysWithMaxRain: s.PeakDays,
				DryDays:         s.DryCount,
				MaxPerimeter:    s.MaxPerimeter,
				NormalDays:      s.NormalCount,
				OptimalDays:     s.OptimalCount,
				RainyDays:       s.RainCount,
			},
		})
	case forecast.AlreadyExists:
		httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "The solar system was already created. Congrats!"})
	default:
		httputil.WriteErrorDetails(w, http.StatusUnprocessableEntity, "invalid simulation", res.Errors)
	}
}

// legacyWeather handles GET /clima?dia=N and answers with the first
// version's condition names.
func (h *handlers) legacyWeather(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("dia"))
	if raw == "" {
		httputil.WriteError(w, http.StatusBadRequest, "dia is required")
		return
	}
	dia, err := strconv.Atoi(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "dia must be an integer")
		return
	}

	res, err := h.svc.QueryDay(r.Context(), dia)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if res.Outcome == forecast.NotFound {
		httputil.WriteJSON(w, http.StatusNotFound, messageResponse{Message: "The day does not exist!"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, legacyWeather{Dia: dia, Clima: res.Day.Condition.Legacy()})
}
