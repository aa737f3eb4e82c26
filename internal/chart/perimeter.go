// Package chart renders forecast charts as PNG images.
package chart

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/star/solarweather/internal/weather"
)

// ErrNotEnoughData is returned when there are fewer than two days to plot.
var ErrNotEnoughData = errors.New("at least two days are required to draw a chart")

// Options controls the rendered image.
type Options struct {
	Width  int
	Height int
	Title  string
}

// DefaultOptions returns the size used by the HTTP endpoint.
func DefaultOptions() Options {
	return Options{Width: 1000, Height: 400, Title: "Triangle perimeter per day"}
}

var (
	colorTriangle = drawing.Color{R: 170, G: 170, B: 170, A: 255} // Grey
	colorRain     = drawing.Color{R: 51, G: 102, B: 204, A: 255}  // Blue
	colorPeak     = drawing.Color{R: 204, G: 0, B: 0, A: 255}     // Red
)

// RenderPerimeter draws the triangle perimeter of every day. Rain days are
// highlighted and rain peaks are marked.
func RenderPerimeter(w io.Writer, days []weather.Day, opts Options) error {
	if len(days) < 2 {
		return ErrNotEnoughData
	}

	xs := make([]float64, len(days))
	all := make([]float64, len(days))
	rain := make([]float64, len(days))
	var peakXs, peakYs []float64
	var maxPerimeter float64

	for i, d := range days {
		xs[i] = float64(d.Number)
		all[i] = d.Perimeter
		if d.Condition.IsRain() {
			rain[i] = d.Perimeter
		}
		if d.Condition == weather.RainPeak {
			peakXs = append(peakXs, float64(d.Number))
			peakYs = append(peakYs, d.Perimeter)
		}
		maxPerimeter = max(maxPerimeter, d.Perimeter)
	}
	if maxPerimeter == 0 {
		maxPerimeter = 1
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Triangle",
			Style:   chart.Style{StrokeColor: colorTriangle, StrokeWidth: 1},
			XValues: xs,
			YValues: all,
		},
		chart.ContinuousSeries{
			Name:    "Rain",
			Style:   chart.Style{StrokeColor: colorRain, StrokeWidth: 1.5},
			XValues: xs,
			YValues: rain,
		},
	}
	if len(peakXs) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name: "Rain peak",
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotColor:    colorPeak,
				DotWidth:    4,
			},
			XValues: peakXs,
			YValues: peakYs,
		})
	}

	graph := chart.Chart{
		Title: opts.Title,
		TitleStyle: chart.Style{
			FontSize:  14,
			FontColor: drawing.ColorBlack,
		},
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Width:  opts.Width,
		Height: opts.Height,
		XAxis: chart.XAxis{
			Name:           "Day",
			ValueFormatter: dayFormatter,
			Range: &chart.ContinuousRange{
				Min: xs[0],
				Max: xs[len(xs)-1],
			},
		},
		YAxis: chart.YAxis{
			Name: "Perimeter",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: maxPerimeter * 1.05,
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render perimeter chart: %w", err)
	}
	return nil
}

func dayFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return fmt.Sprintf("%.0f", f)
	}
	return ""
}
