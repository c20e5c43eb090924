package plot

import (
	"errors"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

// Default PNG dimensions in pixels.
const (
	DefaultPNGWidth  = 1024
	DefaultPNGHeight = 320
)

// PNG renders fig as a line chart. Events are drawn as dots on the signal
// and the indicator uses a secondary [0, 1] axis.
func PNG(w io.Writer, fig Figure, width, height int) error {
	if err := fig.validate(); err != nil {
		return err
	}
	if len(fig.Signal) < 2 {
		return errors.New("at least two samples are required for a PNG plot")
	}
	if width <= 0 {
		width = DefaultPNGWidth
	}
	if height <= 0 {
		height = DefaultPNGHeight
	}

	xs := fig.Seconds()
	ys := make([]float64, len(fig.Signal))
	minVal, maxVal := finiteMinMax(fig.Signal)
	// go-chart cannot draw NaN; gaps are flattened to the lower bound.
	for i, v := range fig.Signal {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = minVal
		}
		ys[i] = v
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		minVal--
		maxVal++
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    fig.label(),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				StrokeWidth: 1,
			},
		},
	}
	if events := fig.visibleEvents(); len(events) > 0 {
		ex := make([]float64, len(events))
		ey := make([]float64, len(events))
		for i, e := range events {
			ex[i] = xs[e]
			ey[i] = ys[e]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "events",
			XValues: ex,
			YValues: ey,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    4,
				DotColor:    chart.ColorRed,
			},
		})
	}
	secondary := chart.YAxis{Style: chart.Hidden()}
	if fig.Indicator != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    "indicator",
			YAxis:   chart.YAxisSecondary,
			XValues: xs,
			YValues: fig.Indicator,
			Style: chart.Style{
				StrokeColor:     chart.ColorOrange,
				StrokeWidth:     1,
				StrokeDashArray: []float64{4, 2},
			},
		})
		secondary = chart.YAxis{
			Name:  "indicator",
			Style: chart.Shown(),
			Range: &chart.ContinuousRange{Min: 0, Max: 1},
		}
	}

	graph := chart.Chart{
		Title:  fig.Heading(),
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Name:           "time (s)",
			Style:          chart.Shown(),
			GridMajorStyle: chart.Style{StrokeColor: chart.ColorLightGray, StrokeWidth: 1},
		},
		YAxis: chart.YAxis{
			Name:           fig.label(),
			Style:          chart.Shown(),
			Range:          &chart.ContinuousRange{Min: minVal, Max: maxVal},
			GridMajorStyle: chart.Style{StrokeColor: chart.ColorLightGray, StrokeWidth: 1},
		},
		YAxisSecondary: secondary,
		Series:         series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}
