package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/star/solarweather/internal/simulation"
	"github.com/star/solarweather/internal/weather"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestRenderPerimeter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPerimeter(&buf, simulation.Build(360).Days, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderPerimeter_NoTriangles(t *testing.T) {
	days := []weather.Day{
		{Number: 0, Condition: weather.Dry},
		{Number: 1, Condition: weather.Optimal},
	}

	var buf bytes.Buffer
	require.NoError(t, RenderPerimeter(&buf, days, Options{Width: 300, Height: 200}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestRenderPerimeter_NotEnoughData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, RenderPerimeter(&buf, simulation.Build(1).Days, DefaultOptions()), ErrNotEnoughData)
	assert.Zero(t, buf.Len())
}
