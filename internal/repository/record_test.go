package repository

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

func TestDayRecord_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 23, 45, 64, 3649} {
		d := weather.NewDay(n)

		data, err := json.Marshal(NewDayRecord(d))
		require.NoError(t, err)

		var rec DayRecord
		require.NoError(t, json.Unmarshal(data, &rec))

		got, err := rec.Day()
		require.NoError(t, err)
		assert.Equal(t, d, got, "day %d", n)
	}
}

func TestDayRecord_Fields(t *testing.T) {
	rec := NewDayRecord(weather.NewDay(1))

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1), raw["day"])
	assert.Equal(t, "normal", raw["condition"])

	bodies := raw["bodies"].([]any)
	require.Len(t, bodies, 3)
	first := bodies[0].(map[string]any)
	assert.Equal(t, "betasoide", first["name"])
	assert.Equal(t, float64(3), first["velocity"])
	assert.Equal(t, true, first["clockwise"])
	assert.Equal(t, float64(2000), first["radius"])
	assert.Equal(t, float64(-3), first["angle"])
}

func TestDayRecord_WrongBodyCount(t *testing.T) {
	_, err := DayRecord{Number: 4, Bodies: []BodyRecord{{Name: "x"}}}.Day()
	assert.Error(t, err)
}

func TestSummaryRecord_RoundTrip(t *testing.T) {
	s := simulation.Build(100).Summary

	got := NewSummaryRecord(s).Summary()
	assert.Equal(t, s, got)

	empty := SummaryRecord{}.Summary()
	assert.NotNil(t, empty.PeakDays)
}
