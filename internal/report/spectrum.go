package report

import (
	"bytes"
	"fmt"
	"image/color"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/user/pq_analyzer_go/internal/analysis"
	"github.com/user/pq_analyzer_go/internal/limits"
)

// SpectrumChart describes one harmonic spectrum panel: per-order
// distortion magnitudes plus the applicable IEEE 519 limit overlay.
type SpectrumChart struct {
	Title      string
	YAxisLabel string
	Orders     []float64
	Values     []float64
	Limits     []float64 // nil means no overlay (e.g. missing IL)
}

// VoltageSpectrum builds the voltage harmonic panel with its flat
// individual-harmonic limit line.
func VoltageSpectrum(bar analysis.BarChartData, nominalVoltage float64) SpectrumChart {
	limit := limits.VoltageLimit(nominalVoltage)
	overlay := make([]float64, len(bar.Labels))
	for i := range overlay {
		overlay[i] = limit
	}
	return SpectrumChart{
		Title:      "Voltage Harmonic Spectrum (95th percentile)",
		YAxisLabel: "Vh (%)",
		Orders:     bar.Labels,
		Values:     bar.VhData,
		Limits:     overlay,
	}
}

// CurrentSpectrum builds the current harmonic panel. The overlay follows
// the Isc/IL bracket's per-order bands and is omitted when IL is zero.
func CurrentSpectrum(bar analysis.BarChartData, isc, il float64) SpectrumChart {
	return SpectrumChart{
		Title:      "Current Harmonic Spectrum (95th percentile)",
		YAxisLabel: "Ah (%)",
		Orders:     bar.Labels,
		Values:     bar.AhData,
		Limits:     limits.CurrentLimits(isc, il, bar.Labels),
	}
}

// RenderSpectrum draws the spectrum as a bar chart with a dashed limit
// line and returns PNG bytes.
func RenderSpectrum(spec SpectrumChart) ([]byte, error) {
	if len(spec.Orders) == 0 {
		return nil, fmt.Errorf("no harmonic orders to plot")
	}

	p := plot.New()
	p.Title.Text = spec.Title
	p.X.Label.Text = "Harmonic Order"
	p.Y.Label.Text = spec.YAxisLabel
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(plotter.Values(spec.Values), vg.Points(5))
	if err != nil {
		return nil, fmt.Errorf("failed to create bar chart: %v", err)
	}
	bars.Color = color.RGBA{R: 54, G: 120, B: 190, A: 255}
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.Legend.Add("Measured", bars)

	labels := make([]string, len(spec.Orders))
	for i, order := range spec.Orders {
		// Label every third order so the axis stays readable across 2..50.
		if i%3 == 0 {
			labels[i] = strconv.FormatFloat(order, 'f', -1, 64)
		}
	}
	p.NominalX(labels...)

	if len(spec.Limits) == len(spec.Values) && len(spec.Limits) > 0 {
		pts := make(plotter.XYs, len(spec.Limits))
		for i, lim := range spec.Limits {
			pts[i] = plotter.XY{X: float64(i), Y: lim}
		}
		limitLine, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to create limit line: %v", err)
		}
		limitLine.Color = color.RGBA{R: 255, A: 255}
		limitLine.LineStyle.Width = vg.Points(1.5)
		limitLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		p.Add(limitLine)
		p.Legend.Add("IEEE 519 Limit", limitLine)
	}

	p.Legend.Top = true

	writer, err := p.WriterTo(vg.Points(900), vg.Points(350), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}
