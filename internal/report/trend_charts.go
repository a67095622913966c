package report

import (
	"bytes"
	"fmt"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/user/pq_analyzer_go/internal/trend"
)

const (
	trendChartWidth  = 900
	trendChartHeight = 320
)

// RenderTrendChart draws one chart group as a PNG time-series panel. Every
// dataset keeps its deterministic key color so the exported chart matches
// the on-screen legend.
func RenderTrendChart(group trend.ChartGroup) ([]byte, error) {
	if !group.HasData() {
		return nil, fmt.Errorf("chart group %q has no data in the selected window", group.Spec.Title)
	}

	series := make([]chart.Series, 0, len(group.Datasets))
	for _, ds := range group.Datasets {
		if len(ds.Points) == 0 {
			continue
		}
		times := make([]time.Time, len(ds.Points))
		values := make([]float64, len(ds.Points))
		for i, p := range ds.Points {
			times[i] = p.T
			values[i] = p.V
		}
		// go-chart needs at least two X values to establish a range.
		if len(times) == 1 {
			times = append(times, times[0].Add(time.Second))
			values = append(values, values[0])
		}
		c := ds.Color()
		series = append(series, chart.TimeSeries{
			Name:    ds.Label,
			XValues: times,
			YValues: values,
			Style: chart.Style{
				StrokeColor: drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A},
				StrokeWidth: 1.5,
			},
		})
	}

	ch := chart.Chart{
		Title:      group.Spec.Title,
		Width:      trendChartWidth,
		Height:     trendChartHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: 24}},
		YAxis:      chart.YAxis{Name: group.Spec.YAxisLabel},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render trend chart %q: %w", group.Spec.Title, err)
	}
	return buf.Bytes(), nil
}
