package trend

import (
	"image/color"
	"strings"
	"time"

	"github.com/user/pq_analyzer_go/internal/analysis"
)

// Trend categories, matching the tabbed display and the PDF section order.
const (
	CategoryRMS         = "rms"
	CategoryPower       = "power"
	CategoryEnergy      = "energy"
	CategoryHarmonic    = "harmonic"
	CategoryPowerFactor = "power_factor"
	CategoryUnbalance   = "unbalance"
)

// ChartGroupSpec describes how raw trend series are grouped into one named
// chart panel. The list is defined once at startup and never mutated.
type ChartGroupSpec struct {
	Category      string
	Title         string
	YAxisLabel    string
	ParentDataKey string
	ChildDataKeys []string
}

// ChartGroups is the static panel layout, in display order.
var ChartGroups = []ChartGroupSpec{
	{CategoryRMS, "Voltage L-L RMS", "Voltage (V)", "voltage_ll", []string{"U1 RMS", "U2 RMS", "U3 RMS"}},
	{CategoryRMS, "Voltage L-N RMS", "Voltage (V)", "voltage_ln", []string{"V1 RMS", "V2 RMS", "V3 RMS"}},
	{CategoryRMS, "Current RMS", "Current (A)", "current", []string{"A1 RMS", "A2 RMS", "A3 RMS"}},
	{CategoryPower, "Active Power", "Power (W)", "active_power", []string{"W Total"}},
	{CategoryPower, "Reactive Power", "Power (var)", "reactive_power", []string{"var Total"}},
	{CategoryPower, "Apparent Power", "Power (VA)", "apparent_power", []string{"VA Total"}},
	{CategoryEnergy, "Active Energy", "Energy (Wh)", "active_energy", []string{"Wh Total"}},
	{CategoryEnergy, "Reactive Energy", "Energy (varh)", "reactive_energy", []string{"varh Total"}},
	{CategoryEnergy, "Apparent Energy", "Energy (VAh)", "apparent_energy", []string{"VAh Total"}},
	{CategoryHarmonic, "Voltage THD", "THD (%)", "thdv_percent", []string{"U1 THD", "U2 THD", "U3 THD"}},
	{CategoryHarmonic, "Current THD", "THD (%)", "thdi_percent", []string{"A1 THD", "A2 THD", "A3 THD"}},
	{CategoryPowerFactor, "Power Factor", "Power Factor", "power_factor", []string{"PF1", "PF2", "PF3", "PF Mean"}},
	{CategoryUnbalance, "Unbalance", "Unbalance (%)", "unbalance", []string{"Vunb", "Aunb"}},
}

// Point is one chart sample.
type Point struct {
	T time.Time `json:"x"`
	V float64   `json:"y"`
}

// Dataset is one chart-ready series with its stable color.
type Dataset struct {
	Label  string
	Key    string
	Hue    int
	Points []Point
}

// Color returns the dataset's render color.
func (d Dataset) Color() color.RGBA {
	return HSLToRGBA(float64(d.Hue), 0.70, 0.50)
}

// ChartGroup is one panel's emitted datasets.
type ChartGroup struct {
	Spec     ChartGroupSpec
	Datasets []Dataset
}

// HasData reports whether any dataset carries at least one point. Groups
// that filtered down to nothing are still shaped, but the PDF skips them.
func (g ChartGroup) HasData() bool {
	for _, d := range g.Datasets {
		if len(d.Points) > 0 {
			return true
		}
	}
	return false
}

// displayLabel derives the legend label from the series key: underscores
// become spaces, the result is upper-cased.
func displayLabel(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "_", " "))
}

// GroupsFor shapes the filtered trend data into chart-ready panels for one
// category; an empty category selects every panel (export mode). Child
// keys absent from the data are skipped, and a group whose children are
// all absent is suppressed entirely.
func GroupsFor(td *analysis.TrendData, category string) []ChartGroup {
	if td == nil {
		return nil
	}
	times := make([]time.Time, len(td.Timestamps))
	valid := make([]bool, len(td.Timestamps))
	for i, ts := range td.Timestamps {
		if t, err := parseTimestamp(ts); err == nil {
			times[i] = t
			valid[i] = true
		}
	}

	var out []ChartGroup
	for _, spec := range ChartGroups {
		if category != "" && spec.Category != category {
			continue
		}
		group := td.Group(spec.ParentDataKey)
		var datasets []Dataset
		for _, child := range spec.ChildDataKeys {
			series, ok := group[child]
			if !ok || series == nil {
				continue
			}
			points := make([]Point, 0, len(series))
			for i := range td.Timestamps {
				if !valid[i] || i >= len(series) {
					continue
				}
				points = append(points, Point{T: times[i], V: series[i]})
			}
			datasets = append(datasets, Dataset{
				Label:  displayLabel(child),
				Key:    child,
				Hue:    Hue(child),
				Points: points,
			})
		}
		if len(datasets) == 0 {
			continue
		}
		out = append(out, ChartGroup{Spec: spec, Datasets: datasets})
	}
	return out
}
